package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/docharvest"
)

// Ensure LoggingContentSelector implements docharvest.ContentSelector.
var _ docharvest.ContentSelector = (*LoggingContentSelector)(nil)

// LoggingContentSelector wraps a ContentSelector and logs the framework
// detected for each page.
type LoggingContentSelector struct {
	next     docharvest.ContentSelector
	detector docharvest.FrameworkDetector
	logger   *slog.Logger
}

// NewLoggingContentSelector creates a new LoggingContentSelector.
func NewLoggingContentSelector(next docharvest.ContentSelector, detector docharvest.FrameworkDetector, logger *slog.Logger) *LoggingContentSelector {
	return &LoggingContentSelector{next: next, detector: detector, logger: logger}
}

// SelectContent delegates to the wrapped selector.
func (s *LoggingContentSelector) SelectContent(html string, selectors []string) (*docharvest.ExtractResult, error) {
	return s.next.SelectContent(html, selectors)
}

// CandidateSelectors detects the framework, logs it, and delegates.
func (s *LoggingContentSelector) CandidateSelectors(html string) []string {
	begin := time.Now()
	framework := s.detector.Detect(html)
	name := string(framework)
	if framework == docharvest.FrameworkUnknown {
		name = "(unknown)"
	}
	s.logger.Debug("framework detection",
		"framework", name,
		"duration", time.Since(begin),
	)
	return s.next.CandidateSelectors(html)
}
