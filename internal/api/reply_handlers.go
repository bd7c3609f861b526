package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/wellspringapp/wellspring-server/internal/domain"
	"github.com/wellspringapp/wellspring-server/internal/service"
)

func (s *Server) registerReplyRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listReplies",
		Method:      http.MethodGet,
		Path:        "/api/v1/topics/{topicId}/replies",
		Summary:     "List replies",
		Description: "Returns a topic's replies oldest first",
		Tags:        []string{"Replies"},
	}, s.handleListReplies)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createReply",
		Method:        http.MethodPost,
		Path:          "/api/v1/topics/{topicId}/replies",
		Summary:       "Create reply",
		Description:   "Replies to a topic, optionally under another reply of the same topic",
		Tags:          []string{"Replies"},
		DefaultStatus: http.StatusCreated,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleCreateReply)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateReply",
		Method:      http.MethodPatch,
		Path:        "/api/v1/replies/{id}",
		Summary:     "Update reply",
		Description: "Edits a reply (author only, topic must not be locked)",
		Tags:        []string{"Replies"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateReply)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteReply",
		Method:        http.MethodDelete,
		Path:          "/api/v1/replies/{id}",
		Summary:       "Delete reply",
		Description:   "Deletes a reply; its children move up to its parent",
		Tags:          []string{"Replies"},
		DefaultStatus: http.StatusNoContent,
		Security:      []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteReply)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleReplyLike",
		Method:      http.MethodPost,
		Path:        "/api/v1/replies/{id}/like",
		Summary:     "Toggle reply like",
		Tags:        []string{"Replies"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleReplyLike)

	huma.Register(s.api, huma.Operation{
		OperationID: "reportReply",
		Method:      http.MethodPost,
		Path:        "/api/v1/replies/{id}/report",
		Summary:     "Report reply",
		Tags:        []string{"Replies"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleReportReply)
}

// === DTOs ===

// ListRepliesInput addresses a topic's replies.
type ListRepliesInput struct {
	TopicID string `path:"topicId" doc:"Topic ID"`
}

// ReplyListResponse contains a topic's replies.
type ReplyListResponse struct {
	Replies []ReplyResponse `json:"replies" doc:"Replies, oldest first"`
}

// ReplyListOutput wraps the reply list for Huma.
type ReplyListOutput struct {
	Body ReplyListResponse
}

// CreateReplyRequest is the request body for creating a reply.
type CreateReplyRequest struct {
	Content       string              `json:"content" maxLength:"10000" doc:"Body text; @username mentions notify that user"`
	ParentReplyID string              `json:"parent_reply_id,omitempty" doc:"Reply being answered, empty for top-level"`
	Attachments   []domain.Attachment `json:"attachments,omitempty" maxItems:"5" doc:"Uploaded file references"`
}

// CreateReplyInput wraps the create reply request for Huma.
type CreateReplyInput struct {
	TopicID        string `path:"topicId" doc:"Topic ID"`
	IdempotencyKey string `header:"Idempotency-Key" doc:"Client-generated UUID that makes retries safe"`
	Body           CreateReplyRequest
}

// ReplyOutput wraps a single reply for Huma.
type ReplyOutput struct {
	Body ReplyResponse
}

// ReplyIDInput addresses one reply.
type ReplyIDInput struct {
	ID string `path:"id" doc:"Reply ID"`
}

// UpdateReplyRequest is the request body for editing a reply.
type UpdateReplyRequest struct {
	Content     *string              `json:"content,omitempty" maxLength:"10000" doc:"New body"`
	Attachments *[]domain.Attachment `json:"attachments,omitempty" maxItems:"5" doc:"Replacement attachments"`
}

// UpdateReplyInput wraps the update reply request for Huma.
type UpdateReplyInput struct {
	ID   string `path:"id" doc:"Reply ID"`
	Body UpdateReplyRequest
}

// ReportReplyInput wraps a reply report for Huma.
type ReportReplyInput struct {
	ID   string `path:"id" doc:"Reply ID"`
	Body ReportRequest
}

// === Handlers ===

func (s *Server) handleListReplies(ctx context.Context, input *ListRepliesInput) (*ReplyListOutput, error) {
	caller, err := s.OptionalProfile(ctx)
	if err != nil {
		return nil, err
	}
	views, err := s.services.Replies.ListReplies(ctx, caller, input.TopicID)
	if err != nil {
		return nil, err
	}
	replies := make([]ReplyResponse, 0, len(views))
	for _, v := range views {
		replies = append(replies, toReplyResponse(v))
	}
	return &ReplyListOutput{Body: ReplyListResponse{Replies: replies}}, nil
}

func (s *Server) handleCreateReply(ctx context.Context, input *CreateReplyInput) (*ReplyOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := s.services.Replies.CreateReply(ctx, caller, input.TopicID, service.CreateReplyRequest{
		Content:       input.Body.Content,
		ParentReplyID: input.Body.ParentReplyID,
		Attachments:   input.Body.Attachments,
	}, input.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	return &ReplyOutput{Body: replyResponseFor(reply, caller)}, nil
}

func (s *Server) handleUpdateReply(ctx context.Context, input *UpdateReplyInput) (*ReplyOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	reply, err := s.services.Replies.UpdateReply(ctx, caller, input.ID, service.UpdateReplyRequest{
		Content:     input.Body.Content,
		Attachments: input.Body.Attachments,
	})
	if err != nil {
		return nil, err
	}
	return &ReplyOutput{Body: replyResponseFor(reply, caller)}, nil
}

func (s *Server) handleDeleteReply(ctx context.Context, input *ReplyIDInput) (*struct{}, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Replies.DeleteReply(ctx, caller, input.ID); err != nil {
		return nil, err
	}
	return nil, nil
}

func (s *Server) handleToggleReplyLike(ctx context.Context, input *ReplyIDInput) (*ToggleOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.services.Replies.ToggleLike(ctx, caller, input.ID)
	if err != nil {
		return nil, err
	}
	return toToggleOutput(res), nil
}

func (s *Server) handleReportReply(ctx context.Context, input *ReportReplyInput) (*MessageOutput, error) {
	caller, err := s.RequireWriter(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.services.Replies.Report(ctx, caller, input.ID, service.ReportRequest{Reason: input.Body.Reason}); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "report received"}}, nil
}
