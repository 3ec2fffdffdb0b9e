package handlers

import (
	"encoding/json"
	"net/http"

	"ridezon-backend/internal/middleware"
	"ridezon-backend/internal/services"

	"github.com/go-chi/chi/v5"
)

// GroupHandler handles group-scoped requests: messages, expenses, polls
type GroupHandler struct {
	chatService    *services.ChatService
	expenseService *services.ExpenseService
	pollService    *services.PollService
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(
	chatService *services.ChatService,
	expenseService *services.ExpenseService,
	pollService *services.PollService,
) *GroupHandler {
	return &GroupHandler{
		chatService:    chatService,
		expenseService: expenseService,
		pollService:    pollService,
	}
}

// ListMessages handles GET /api/groups/{groupId}/messages
func (h *GroupHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.chatService.History(r.Context(),
		chi.URLParam(r, "groupId"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, messages, http.StatusOK)
}

// SendMessage handles POST /api/groups/{groupId}/messages
func (h *GroupHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.chatService.Send(r.Context(),
		chi.URLParam(r, "groupId"), middleware.GetUserID(r.Context()), in.Content)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, msg, http.StatusCreated)
}

// ListExpenses handles GET /api/groups/{groupId}/expenses
func (h *GroupHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.expenseService.List(r.Context(),
		chi.URLParam(r, "groupId"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, expenses, http.StatusOK)
}

// AddExpense handles POST /api/groups/{groupId}/expenses
func (h *GroupHandler) AddExpense(w http.ResponseWriter, r *http.Request) {
	var in services.ExpenseInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	expense, err := h.expenseService.Create(r.Context(),
		chi.URLParam(r, "groupId"), middleware.GetUserID(r.Context()), in)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, expense, http.StatusCreated)
}

// SettleExpense handles POST /api/groups/{groupId}/expenses/{expenseId}/settle
func (h *GroupHandler) SettleExpense(w http.ResponseWriter, r *http.Request) {
	err := h.expenseService.Settle(r.Context(),
		chi.URLParam(r, "groupId"), chi.URLParam(r, "expenseId"),
		middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, map[string]string{"message": "expense settled"}, http.StatusOK)
}

// ListPolls handles GET /api/groups/{groupId}/polls
func (h *GroupHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.pollService.List(r.Context(),
		chi.URLParam(r, "groupId"), middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, polls, http.StatusOK)
}

// CreatePoll handles POST /api/groups/{groupId}/polls
func (h *GroupHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Question string   `json:"question"`
		Options  []string `json:"options"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	poll, err := h.pollService.Create(r.Context(),
		chi.URLParam(r, "groupId"), middleware.GetUserID(r.Context()),
		in.Question, in.Options)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, poll, http.StatusCreated)
}

// VotePoll handles POST /api/polls/{pollId}/vote/{optionId}
func (h *GroupHandler) VotePoll(w http.ResponseWriter, r *http.Request) {
	poll, err := h.pollService.Vote(r.Context(),
		chi.URLParam(r, "pollId"), chi.URLParam(r, "optionId"),
		middleware.GetUserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, poll, http.StatusOK)
}
