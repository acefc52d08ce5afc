package models

import (
	"sync"
	"time"
)

// ProcessingStats accumulates counters across a single pipeline run. The
// orchestrator's question batches run concurrently, so every mutation goes
// through the mutex; Snapshot returns a plain copy for serialization once
// the run completes.
type ProcessingStats struct {
	mu sync.Mutex

	questionsProcessed int
	documentsChecked   int
	evidenceFound      int
	compliantCount     int
	nonCompliantCount  int
	cacheHits          int
	failedDownloads    int
	failedJudgments    int
	downloadTime       time.Duration
	analysisTime       time.Duration
}

// StatsSnapshot is the read-only serialized form of ProcessingStats.
type StatsSnapshot struct {
	QuestionsProcessed int   `json:"questions_processed"`
	DocumentsChecked   int   `json:"documents_checked"`
	EvidenceFound      int   `json:"evidence_found"`
	CompliantCount     int   `json:"compliant_count"`
	NonCompliantCount  int   `json:"non_compliant_count"`
	CacheHits          int   `json:"cache_hits"`
	FailedDownloads    int   `json:"failed_downloads"`
	FailedJudgments    int   `json:"failed_judgments"`
	DownloadTimeMs     int64 `json:"download_time_ms"`
	AnalysisTimeMs     int64 `json:"analysis_time_ms"`
}

// NewProcessingStats creates an empty stats accumulator.
func NewProcessingStats() *ProcessingStats {
	return &ProcessingStats{}
}

// AddQuestionProcessed records one completed question.
func (s *ProcessingStats) AddQuestionProcessed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questionsProcessed++
}

// AddDocumentsChecked records documents examined for one question.
func (s *ProcessingStats) AddDocumentsChecked(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documentsChecked += n
}

// AddEvidence records a judgment that produced an evidence candidate and
// tallies its answer as compliant or non-compliant.
func (s *ProcessingStats) AddEvidence(answer Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evidenceFound++
	switch answer {
	case AnswerYes:
		s.compliantCount++
	case AnswerNo:
		s.nonCompliantCount++
	}
}

// AddCacheHit records a cache hit anywhere in the pipeline.
func (s *ProcessingStats) AddCacheHit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cacheHits++
}

// AddFailedDownload records a content fetch that resolved to no content.
func (s *ProcessingStats) AddFailedDownload() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedDownloads++
}

// AddFailedJudgment records a judgment call that failed terminally.
func (s *ProcessingStats) AddFailedJudgment() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failedJudgments++
}

// AddDownloadTime accumulates time spent materializing document content.
func (s *ProcessingStats) AddDownloadTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downloadTime += d
}

// AddAnalysisTime accumulates time spent in reasoning calls.
func (s *ProcessingStats) AddAnalysisTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.analysisTime += d
}

// Snapshot returns a copy of the current counters.
func (s *ProcessingStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		QuestionsProcessed: s.questionsProcessed,
		DocumentsChecked:   s.documentsChecked,
		EvidenceFound:      s.evidenceFound,
		CompliantCount:     s.compliantCount,
		NonCompliantCount:  s.nonCompliantCount,
		CacheHits:          s.cacheHits,
		FailedDownloads:    s.failedDownloads,
		FailedJudgments:    s.failedJudgments,
		DownloadTimeMs:     s.downloadTime.Milliseconds(),
		AnalysisTimeMs:     s.analysisTime.Milliseconds(),
	}
}
