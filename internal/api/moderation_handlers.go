package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wellspringapp/wellspring-server/internal/domain"
)

func (s *Server) registerModerationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listReports",
		Method:      http.MethodGet,
		Path:        "/api/v1/moderation/reports",
		Summary:     "List reported content",
		Description: "Returns topics and replies with at least one open report. Moderator only.",
		Tags:        []string{"Moderation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListReports)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveReports",
		Method:      http.MethodPost,
		Path:        "/api/v1/moderation/{kind}/{id}/resolve",
		Summary:     "Resolve reports",
		Description: "Resolves every open report on a topic or reply and notifies the reporters. Moderator only.",
		Tags:        []string{"Moderation"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleResolveReports)
}

// === DTOs ===

// ReportResponse is one report in the moderation queue.
type ReportResponse struct {
	ReporterID string    `json:"reporter_id" doc:"Reporting user"`
	Reason     string    `json:"reason" doc:"Reason given"`
	CreatedAt  time.Time `json:"created_at" doc:"When the report was made"`
}

// ReportedTopicResponse is a topic awaiting moderation.
type ReportedTopicResponse struct {
	Topic   TopicResponse    `json:"topic" doc:"Reported topic"`
	Reports []ReportResponse `json:"reports" doc:"Open reports"`
}

// ReportedReplyResponse is a reply awaiting moderation.
type ReportedReplyResponse struct {
	Reply   ReplyResponse    `json:"reply" doc:"Reported reply"`
	Reports []ReportResponse `json:"reports" doc:"Open reports"`
}

// ReportQueueResponse is the moderation queue.
type ReportQueueResponse struct {
	Topics  []ReportedTopicResponse `json:"topics" doc:"Reported topics"`
	Replies []ReportedReplyResponse `json:"replies" doc:"Reported replies"`
}

// ReportQueueOutput wraps the queue for Huma.
type ReportQueueOutput struct {
	Body ReportQueueResponse
}

// ResolveReportsInput addresses reported content.
type ResolveReportsInput struct {
	Kind string `path:"kind" enum:"topic,reply" doc:"Content kind"`
	ID   string `path:"id" doc:"Topic or reply ID"`
}

// ResolveReportsResponse reports how many reports were closed.
type ResolveReportsResponse struct {
	Resolved int `json:"resolved" doc:"Reports resolved"`
}

// ResolveReportsOutput wraps the resolve response for Huma.
type ResolveReportsOutput struct {
	Body ResolveReportsResponse
}

func openReports(rs domain.Reports) []ReportResponse {
	out := make([]ReportResponse, 0, len(rs))
	for _, r := range rs {
		if r.Resolved {
			continue
		}
		out = append(out, ReportResponse{ReporterID: r.ReporterID, Reason: r.Reason, CreatedAt: r.CreatedAt})
	}
	return out
}

// === Handlers ===

func (s *Server) handleListReports(ctx context.Context, _ *struct{}) (*ReportQueueOutput, error) {
	caller, err := s.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}
	queue, err := s.services.Moderation.ListReported(ctx, caller)
	if err != nil {
		return nil, err
	}

	resp := ReportQueueResponse{
		Topics:  make([]ReportedTopicResponse, 0, len(queue.Topics)),
		Replies: make([]ReportedReplyResponse, 0, len(queue.Replies)),
	}
	for _, t := range queue.Topics {
		resp.Topics = append(resp.Topics, ReportedTopicResponse{
			Topic:   topicResponseFor(t, caller),
			Reports: openReports(t.Reports),
		})
	}
	for _, r := range queue.Replies {
		resp.Replies = append(resp.Replies, ReportedReplyResponse{
			Reply:   replyResponseFor(r, caller),
			Reports: openReports(r.Reports),
		})
	}
	return &ReportQueueOutput{Body: resp}, nil
}

func (s *Server) handleResolveReports(ctx context.Context, input *ResolveReportsInput) (*ResolveReportsOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.services.Moderation.ResolveReports(ctx, caller, domain.SourceKind(input.Kind), input.ID)
	if err != nil {
		return nil, err
	}
	return &ResolveReportsOutput{Body: ResolveReportsResponse{Resolved: n}}, nil
}
