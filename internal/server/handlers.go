package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pressroom/internal/core"
	"pressroom/internal/gate"
	"pressroom/internal/orchestrator"
	"pressroom/internal/store"
)

// runResponse is the wire shape of the scheduled-trigger response.
// Callers must inspect the errors array: per-topic failures still return
// HTTP 200.
type runResponse struct {
	Success        bool                      `json:"success"`
	Published      int                       `json:"published"`
	CrosspostCount int                       `json:"crosspostCount"`
	Errors         []orchestrator.TopicError `json:"errors"`
	Duration       int64                     `json:"duration"` // milliseconds
	Timestamp      string                    `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRunPipeline executes one scheduled batch pass. Only a failed
// candidate query (the batch-level error) produces a 500.
func (s *Server) handleRunPipeline(w http.ResponseWriter, r *http.Request) {
	report, err := s.runner.RunScheduled(r.Context())
	if err != nil {
		s.log.Error("Scheduled batch aborted", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success":   false,
			"error":     err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, runResponse{
		Success:        true,
		Published:      report.Published,
		CrosspostCount: report.CrosspostCount,
		Errors:         report.Errors,
		Duration:       report.Duration.Milliseconds(),
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	})
}

// handleTopicQuality recomputes the quality verdict for every article
// artifact of a topic. Advisory surface for the approving human; verdicts
// are never persisted.
func (s *Server) handleTopicQuality(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "id")

	topic, err := s.store.Topic(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "topic not found", http.StatusNotFound)
			return
		}
		s.log.Error("Failed to load topic", "topic_id", topicID, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	artifacts, err := s.store.ArtifactsByTopic(r.Context(), topicID)
	if err != nil {
		s.log.Error("Failed to load artifacts", "topic_id", topicID, "error", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	verdicts := map[string]gate.Verdict{}
	for i := range artifacts {
		if artifacts[i].Channel != core.ChannelArticle {
			continue
		}
		verdicts[artifacts[i].Language] = gate.Evaluate(&artifacts[i])
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"topicId":  topic.ID,
		"status":   topic.Status,
		"verdicts": verdicts,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
