package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cyber-sensei/backend/internal/catalog"
	"github.com/cyber-sensei/backend/internal/engine"
	"github.com/cyber-sensei/backend/internal/learner"
	"github.com/cyber-sensei/backend/internal/platform/cache"
	"github.com/cyber-sensei/backend/internal/progress"
)

func (s *Server) handleNextStep(w http.ResponseWriter, r *http.Request) {
	learnerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	step, err := s.selector.NextStep(r.Context(), learnerID)
	if err != nil {
		if errors.Is(err, engine.ErrNotFound) {
			// The error outcome is part of the next-step contract, so it
			// keeps the tagged shape the other outcomes use.
			writeJSON(w, http.StatusNotFound, map[string]string{
				"type":    "error",
				"message": "Learner not found.",
			})
			return
		}
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, step)
}

type submitRequest struct {
	Answers map[string]string `json:"answers"`
}

type submitResponse struct {
	Message      string `json:"message"`
	Correct      int    `json:"correct"`
	Total        int    `json:"total"`
	FinalMastery string `json:"final_mastery"`
}

func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	learnerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	topicID, err := pathID(r, "topicID")
	if err != nil {
		writeError(w, err)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: malformed submission body", engine.ErrInvalidArgument))
		return
	}

	ctx := r.Context()
	if _, err := s.learners.ByID(ctx, learnerID); err != nil {
		if errors.Is(err, learner.ErrNotFound) {
			writeError(w, fmt.Errorf("%w: learner %d", engine.ErrNotFound, learnerID))
			return
		}
		writeError(w, err)
		return
	}

	correct, total, err := s.grader.Grade(ctx, topicID, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}

	mastery, err := s.estimator.UpdateMastery(ctx, learnerID, topicID, correct == total)
	if err != nil {
		writeError(w, err)
		return
	}

	// Post-call concerns; never block the response on them.
	s.logEvent(ctx, progress.Event{
		LearnerID: learnerID,
		TopicID:   topicID,
		EventType: "quiz_submitted",
		Data: map[string]any{
			"correct":   correct,
			"total":     total,
			"knowledge": mastery,
		},
	})
	s.invalidateDashboard(ctx, learnerID)

	writeJSON(w, http.StatusOK, submitResponse{
		Message:      "Quiz submitted!",
		Correct:      correct,
		Total:        total,
		FinalMastery: fmt.Sprintf("%.0f%%", mastery*100),
	})
}

type quizResponse struct {
	TopicID       int64             `json:"topic_id"`
	TopicName     string            `json:"topic_name"`
	QuestionCount int               `json:"question_count"`
	Questions     []engine.Question `json:"questions"`
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	topic, err := s.catalog.Topic(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, catalog.ErrTopicNotFound) {
			writeError(w, fmt.Errorf("%w: topic %d", engine.ErrNotFound, topicID))
			return
		}
		writeError(w, err)
		return
	}

	questions, err := s.grader.Quiz(r.Context(), topicID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, quizResponse{
		TopicID:       topic.ID,
		TopicName:     topic.Name,
		QuestionCount: len(questions),
		Questions:     questions,
	})
}

type topicResponse struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Content         string   `json:"content,omitempty"`
	Difficulty      string   `json:"difficulty"`
	RelatedProjects []string `json:"related_projects"`
}

func (s *Server) handleTopicContent(w http.ResponseWriter, r *http.Request) {
	topicID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	topic, err := s.catalog.Topic(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, catalog.ErrTopicNotFound) {
			writeError(w, fmt.Errorf("%w: topic %d", engine.ErrNotFound, topicID))
			return
		}
		writeError(w, err)
		return
	}

	titles := make([]string, 0, len(topic.Projects))
	for _, p := range topic.Projects {
		titles = append(titles, p.Title)
	}
	writeJSON(w, http.StatusOK, topicResponse{
		ID:              topic.ID,
		Name:            topic.Name,
		Content:         topic.Content,
		Difficulty:      topic.Difficulty,
		RelatedProjects: titles,
	})
}

func (s *Server) handleMarkComplete(w http.ResponseWriter, r *http.Request) {
	learnerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	topicID, err := pathID(r, "topicID")
	if err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	if _, err := s.learners.ByID(ctx, learnerID); err != nil {
		if errors.Is(err, learner.ErrNotFound) {
			writeError(w, fmt.Errorf("%w: learner %d", engine.ErrNotFound, learnerID))
			return
		}
		writeError(w, err)
		return
	}

	topic, err := s.estimator.MarkComplete(ctx, learnerID, topicID)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logEvent(ctx, progress.Event{
		LearnerID: learnerID,
		TopicID:   topicID,
		EventType: "topic_completed",
	})
	s.invalidateDashboard(ctx, learnerID)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Topic '%s' marked as complete.", topic.Name),
	})
}

type dashboardOverall struct {
	Total           int     `json:"total"`
	Mastered        int     `json:"mastered"`
	ProgressPercent float64 `json:"progress_percentage"`
}

type dashboardResponse struct {
	Overall dashboardOverall      `json:"overall"`
	Topics  []engine.TopicMastery `json:"topics"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	learnerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := s.dashboard(r.Context(), learnerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// dashboard serves from the cache when possible and fills it on a miss.
func (s *Server) dashboard(ctx context.Context, learnerID int64) (dashboardResponse, error) {
	key := dashboardCacheKey(learnerID)
	if s.cache != nil {
		var cached dashboardResponse
		if err := s.cache.GetJSON(ctx, key, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, cache.ErrMiss) {
			slog.Warn("dashboard cache read failed", "error", err)
		}
	}

	d, err := s.estimator.Dashboard(ctx, learnerID)
	if err != nil {
		return dashboardResponse{}, err
	}
	resp := dashboardResponse{
		Overall: dashboardOverall{
			Total:           d.TotalTopics,
			Mastered:        d.Mastered,
			ProgressPercent: d.ProgressPercent,
		},
		Topics: d.Topics,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, resp, s.dashboardTTL); err != nil {
			slog.Warn("dashboard cache write failed", "error", err)
		}
	}
	return resp, nil
}

func (s *Server) logEvent(ctx context.Context, event progress.Event) {
	if err := s.events.LogEvent(ctx, event); err != nil {
		slog.Warn("event logging failed",
			"type", event.EventType,
			"learner_id", event.LearnerID,
			"error", err,
		)
	}
}

func (s *Server) invalidateDashboard(ctx context.Context, learnerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, dashboardCacheKey(learnerID)); err != nil {
		slog.Warn("dashboard cache invalidation failed", "learner_id", learnerID, "error", err)
	}
}

func dashboardCacheKey(learnerID int64) string {
	return fmt.Sprintf("dashboard:%d", learnerID)
}
