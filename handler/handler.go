// Package handler exposes the chat endpoint over API Gateway (Lambda) and
// plain net/http, and serves the widget page.
package handler

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"chat-widget/internal/usecase"
)

const (
	chatPath          = "/api/chat"
	correlationHeader = "X-Correlation-Id"
	maxBodyBytes      = 64 << 10
)

//go:embed web/index.html
var indexPage []byte

type ChatUseCase interface {
	Chat(ctx context.Context, in usecase.ChatInput) (usecase.ChatOutput, error)
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
}

type chatResponse struct {
	Reply          string `json:"reply"`
	ConversationID string `json:"conversationId"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type Handler struct {
	chat   ChatUseCase
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(uc ChatUseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: chat use case must not be nil")
	}
	h := &Handler{chat: uc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// request and response are the transport-neutral shapes both entrypoints
// translate to and from.
type request struct {
	method  string
	path    string
	headers map[string]string
	body    []byte
}

type response struct {
	status  int
	headers map[string]string
	body    []byte
}

// Handle is the AWS Lambda entrypoint for API Gateway proxy events.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			h.logger.Warn("invalid base64 request body", "err", err)
		}
		body = decoded
	}
	res := h.serve(ctx, request{
		method:  event.HTTPMethod,
		path:    event.Path,
		headers: event.Headers,
		body:    body,
	})
	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers:    res.headers,
		Body:       string(res.body),
	}, nil
}

// ServeHTTP serves the same routes for the local server.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		body = nil
	}
	headers := make(map[string]string, len(r.Header))
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	res := h.serve(r.Context(), request{
		method:  r.Method,
		path:    r.URL.Path,
		headers: headers,
		body:    body,
	})
	for k, v := range res.headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(res.status)
	_, _ = w.Write(res.body)
}

func (h *Handler) serve(ctx context.Context, req request) response {
	correlationID := headerValue(req.headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := h.logger.With("correlation_id", correlationID, "method", req.method, "path", req.path)

	res := h.route(ctx, logger, req)
	res.headers = withCommonHeaders(res.headers, correlationID)
	logger.Info("request handled", "status", res.status)
	return res
}

func (h *Handler) route(ctx context.Context, logger *slog.Logger, req request) response {
	path := strings.TrimRight(req.path, "/")
	switch {
	case req.method == http.MethodOptions:
		return response{status: http.StatusNoContent}
	case path == chatPath && req.method == http.MethodPost:
		return h.handleChat(ctx, logger, req.body)
	case path == chatPath:
		return jsonResponse(http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed.", Code: string(usecase.ErrorInvalidInput)})
	case path == "" && (req.method == http.MethodGet || req.method == http.MethodHead):
		return response{
			status:  http.StatusOK,
			headers: map[string]string{"Content-Type": "text/html; charset=utf-8"},
			body:    indexPage,
		}
	default:
		return jsonResponse(http.StatusNotFound, errorResponse{Error: "Not found.", Code: string(usecase.ErrorInvalidInput)})
	}
}

func (h *Handler) handleChat(ctx context.Context, logger *slog.Logger, body []byte) response {
	var in chatRequest
	if len(body) > maxBodyBytes {
		return jsonResponse(http.StatusRequestEntityTooLarge, errorResponse{Error: "That message is too long.", Code: string(usecase.ErrorInvalidInput)})
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&in); err != nil {
		logger.Warn("invalid chat request body", "err", err)
		return jsonResponse(http.StatusBadRequest, errorResponse{Error: "The request could not be understood.", Code: string(usecase.ErrorInvalidInput)})
	}

	out, err := h.chat.Chat(ctx, usecase.ChatInput{Message: in.Message, ConversationID: in.ConversationID})
	if err != nil {
		status, payload := mapError(err)
		logger.Error("chat failed", "status", status, "code", payload.Code, "err", err)
		return jsonResponse(status, payload)
	}
	return jsonResponse(http.StatusOK, chatResponse{Reply: out.Reply, ConversationID: out.ConversationID})
}

func mapError(err error) (int, errorResponse) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		internal := &usecase.Error{Code: usecase.ErrorInternal}
		return http.StatusInternalServerError, errorResponse{Error: internal.Message(), Code: string(usecase.ErrorInternal)}
	}
	status := http.StatusInternalServerError
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecase.ErrorRateLimited:
		status = http.StatusTooManyRequests
	case usecase.ErrorUpstream:
		status = http.StatusBadGateway
	}
	return status, errorResponse{Error: ucErr.Message(), Code: string(ucErr.Code)}
}

func jsonResponse(status int, payload any) response {
	body, err := json.Marshal(payload)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"Something went wrong on our side.","code":"INTERNAL_ERROR"}`)
	}
	return response{
		status:  status,
		headers: map[string]string{"Content-Type": "application/json"},
		body:    body,
	}
}

func withCommonHeaders(headers map[string]string, correlationID string) map[string]string {
	if headers == nil {
		headers = make(map[string]string, 4)
	}
	headers["Access-Control-Allow-Origin"] = "*"
	headers["Access-Control-Allow-Methods"] = "GET, POST, OPTIONS"
	headers["Access-Control-Allow-Headers"] = "Content-Type, " + correlationHeader
	headers[correlationHeader] = correlationID
	return headers
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
