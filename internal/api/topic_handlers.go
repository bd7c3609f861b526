package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wellspringapp/wellspring-server/internal/service"
)

func (s *Server) registerTopicRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTopics",
		Method:      http.MethodGet,
		Path:        "/api/v1/topics",
		Summary:     "List topics",
		Description: "Returns a page of topics. Pinned topics lead the default newest ordering",
		Tags:        []string{"Topics"},
	}, s.handleListTopics)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTopic",
		Method:      http.MethodGet,
		Path:        "/api/v1/topics/{id}",
		Summary:     "Get topic",
		Description: "Returns a topic with its replies oldest first. Counts one view unless the caller is the author",
		Tags:        []string{"Topics"},
	}, s.handleGetTopic)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createTopic",
		Method:        http.MethodPost,
		Path:          "/api/v1/topics",
		Summary:       "Create topic",
		Description:   "Creates a topic. Repeating a request with the same Idempotency-Key returns the first result",
		Tags:          []string{"Topics"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateTopic)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateTopic",
		Method:      http.MethodPatch,
		Path:        "/api/v1/topics/{id}",
		Summary:     "Update topic",
		Description: "Edits a topic (author only)",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateTopic)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteTopic",
		Method:        http.MethodDelete,
		Path:          "/api/v1/topics/{id}",
		Summary:       "Delete topic",
		Description:   "Deletes a topic and all of its replies (author, moderator or admin)",
		Tags:          []string{"Topics"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteTopic)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleTopicLike",
		Method:      http.MethodPost,
		Path:        "/api/v1/topics/{id}/like",
		Summary:     "Toggle topic like",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleTopicLike)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleTopicBookmark",
		Method:      http.MethodPost,
		Path:        "/api/v1/topics/{id}/bookmark",
		Summary:     "Toggle topic bookmark",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleTopicBookmark)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportTopic",
		Method:      http.MethodPost,
		Path:        "/api/v1/topics/{id}/report",
		Summary:     "Report topic",
		Description: "Flags a topic for moderators. A second report by the same caller replaces the first",
		Tags:        []string{"Topics"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReportTopic)

	for _, op := range []struct {
		id, path, summary string
		locked            bool
	}{
		{"lockTopic", "/api/v1/topics/{id}/lock", "Lock topic", true},
		{"unlockTopic", "/api/v1/topics/{id}/unlock", "Unlock topic", false},
	} {
		huma.Register(s.api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        op.path,
			Summary:     op.summary,
			Description: "Author, moderator or admin",
			Tags:        []string{"Topics"},
			Security:    []map[string][]string{{"bearer": {}}},
		}, s.lockHandler(op.locked))
	}

	for _, op := range []struct {
		id, path, summary string
		pinned            bool
	}{
		{"pinTopic", "/api/v1/topics/{id}/pin", "Pin topic", true},
		{"unpinTopic", "/api/v1/topics/{id}/unpin", "Unpin topic", false},
	} {
		huma.Register(s.api, huma.Operation{
			OperationID: op.id,
			Method:      http.MethodPost,
			Path:        op.path,
			Summary:     op.summary,
			Description: "Moderator or admin",
			Tags:        []string{"Topics"},
			Security:    []map[string][]string{{"bearer": {}}},
		}, s.pinHandler(op.pinned))
	}
}

// === DTOs ===

// ListTopicsInput contains parameters for listing topics.
type ListTopicsInput struct {
	Category string `query:"category" doc:"Filter by category"`
	Search   string `query:"search" maxLength:"200" doc:"Full-text search over title, content and tags"`
	Sort     string `query:"sort" enum:"newest,oldest,most_liked,most_viewed,most_replies" doc:"Sort order (default newest)"`
	View     string `query:"view" enum:"all,bookmarked,mine" doc:"Scope (default all); bookmarked and mine need auth"`
	Page     int    `query:"page" minimum:"0" doc:"Page number, 1-based"`
	Limit    int    `query:"limit" minimum:"0" maximum:"100" doc:"Page size (default 20)"`
}

// TopicListResponse contains a page of topics.
type TopicListResponse struct {
	Items    []TopicResponse `json:"items" doc:"Topics on this page"`
	Total    int             `json:"total" doc:"Total matching topics"`
	Page     int             `json:"page" doc:"Page number"`
	PageSize int             `json:"page_size" doc:"Page size"`
	HasMore  bool            `json:"has_more" doc:"Whether later pages exist"`
}

// TopicListOutput wraps the topic list response for Huma.
type TopicListOutput struct {
	Body TopicListResponse
}

// TopicIDInput addresses one topic.
type TopicIDInput struct {
	ID string `path:"id" doc:"Topic ID"`
}

// TopicDetailResponse is a topic with its replies.
type TopicDetailResponse struct {
	TopicResponse
	Replies []ReplyResponse `json:"replies" doc:"Replies, oldest first"`
}

// TopicDetailOutput wraps the topic detail response for Huma.
type TopicDetailOutput struct {
	Body TopicDetailResponse
}

// CreateTopicRequest is the request body for creating a topic.
type CreateTopicRequest struct {
	Title    string   `json:"title" maxLength:"200" doc:"Title"`
	Content  string   `json:"content" maxLength:"20000" doc:"Body text"`
	Category string   `json:"category" doc:"One of general, nutrition, fitness, mindfulness, sleep, recipes, support"`
	Tags     []string `json:"tags,omitempty" maxItems:"10" doc:"Free-form tags, normalised to slugs"`
}

// CreateTopicInput wraps the create topic request for Huma.
type CreateTopicInput struct {
	IdempotencyKey string `header:"Idempotency-Key" doc:"Client-generated UUID that makes retries safe"`
	Body           CreateTopicRequest
}

// TopicOutput wraps a single topic for Huma.
type TopicOutput struct {
	Body TopicResponse
}

// UpdateTopicRequest is the request body for editing a topic.
type UpdateTopicRequest struct {
	Title    *string   `json:"title,omitempty" maxLength:"200" doc:"New title"`
	Content  *string   `json:"content,omitempty" maxLength:"20000" doc:"New body"`
	Category *string   `json:"category,omitempty" doc:"New category"`
	Tags     *[]string `json:"tags,omitempty" maxItems:"10" doc:"Replacement tags"`
}

// UpdateTopicInput wraps the update topic request for Huma.
type UpdateTopicInput struct {
	ID   string `path:"id" doc:"Topic ID"`
	Body UpdateTopicRequest
}

// ReportRequest is the request body for reports.
type ReportRequest struct {
	Reason string `json:"reason" maxLength:"500" doc:"Why the content should be reviewed"`
}

// ReportTopicInput wraps a topic report for Huma.
type ReportTopicInput struct {
	ID   string `path:"id" doc:"Topic ID"`
	Body ReportRequest
}

// === Handlers ===

func (s *Server) handleListTopics(ctx context.Context, input *ListTopicsInput) (*TopicListOutput, error) {
	caller, err := s.OptionalProfile(ctx)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Topics.ListTopics(ctx, caller, service.ListTopicsQuery{
		Category: input.Category,
		Search:   input.Search,
		Sort:     input.Sort,
		Scope:    input.View,
		Page:     input.Page,
		PageSize: input.Limit,
	})
	if err != nil {
		return nil, err
	}

	items := make([]TopicResponse, 0, len(page.Items))
	for _, v := range page.Items {
		items = append(items, toTopicResponse(v))
	}
	return &TopicListOutput{
		Body: TopicListResponse{
			Items:    items,
			Total:    page.Total,
			Page:     page.Page,
			PageSize: page.PageSize,
			HasMore:  page.HasMore,
		},
	}, nil
}

func (s *Server) handleGetTopic(ctx context.Context, input *TopicIDInput) (*TopicDetailOutput, error) {
	caller, err := s.OptionalProfile(ctx)
	if err != nil {
		return nil, err
	}

	detail, err := s.services.Topics.GetTopic(ctx, caller, input.ID)
	if err != nil {
		return nil, err
	}

	replies := make([]ReplyResponse, 0, len(detail.Replies))
	for _, r := range detail.Replies {
		replies = append(replies, toReplyResponse(r))
	}
	return &TopicDetailOutput{
		Body: TopicDetailResponse{
			TopicResponse: toTopicResponse(detail.TopicView),
			Replies:       replies,
		},
	}, nil
}

func (s *Server) handleCreateTopic(ctx context.Context, input *CreateTopicInput) (*TopicOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}

	topic, err := s.services.Topics.CreateTopic(ctx, caller, service.CreateTopicRequest{
		Title:    input.Body.Title,
		Content:  input.Body.Content,
		Category: input.Body.Category,
		Tags:     input.Body.Tags,
	}, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return &TopicOutput{Body: topicResponseFor(topic, caller)}, nil
}

func (s *Server) handleUpdateTopic(ctx context.Context, input *UpdateTopicInput) (*TopicOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}

	topic, err := s.services.Topics.UpdateTopic(ctx, caller, input.ID, service.UpdateTopicRequest{
		Title:    input.Body.Title,
		Content:  input.Body.Content,
		Category: input.Body.Category,
		Tags:     input.Body.Tags,
	})
	if err != nil {
		return nil, err
	}
	return &TopicOutput{Body: topicResponseFor(topic, caller)}, nil
}

func (s *Server) handleDeleteTopic(ctx context.Context, input *TopicIDInput) (*struct{}, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Topics.DeleteTopic(ctx, caller, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleToggleTopicLike(ctx context.Context, input *TopicIDInput) (*ToggleOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.services.Topics.ToggleLike(ctx, caller, input.ID)
	if err != nil {
		return nil, err
	}
	return toToggleOutput(res), nil
}

func (s *Server) handleToggleTopicBookmark(ctx context.Context, input *TopicIDInput) (*ToggleOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.services.Topics.ToggleBookmark(ctx, caller, input.ID)
	if err != nil {
		return nil, err
	}
	return toToggleOutput(res), nil
}

func (s *Server) handleReportTopic(ctx context.Context, input *ReportTopicInput) (*MessageOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Topics.Report(ctx, caller, input.ID, service.ReportRequest{Reason: input.Body.Reason}); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "report received"}}, nil
}

func (s *Server) lockHandler(locked bool) func(context.Context, *TopicIDInput) (*TopicOutput, error) {
	return func(ctx context.Context, input *TopicIDInput) (*TopicOutput, error) {
		caller, err := s.RequireWriter(ctx)
		if err != nil {
			return nil, err
		}
		topic, err := s.services.Topics.SetLocked(ctx, caller, input.ID, locked)
		if err != nil {
			return nil, err
		}
		return &TopicOutput{Body: topicResponseFor(topic, caller)}, nil
	}
}

func (s *Server) pinHandler(pinned bool) func(context.Context, *TopicIDInput) (*TopicOutput, error) {
	return func(ctx context.Context, input *TopicIDInput) (*TopicOutput, error) {
		caller, err := s.RequireWriter(ctx)
		if err != nil {
			return nil, err
		}
		topic, err := s.services.Topics.SetPinned(ctx, caller, input.ID, pinned)
		if err != nil {
			return nil, err
		}
		return &TopicOutput{Body: topicResponseFor(topic, caller)}, nil
	}
}
