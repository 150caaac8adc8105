package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"battle-arena/internal/domain"
	"battle-arena/internal/notify"
	"battle-arena/internal/repository"
	"battle-arena/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// ArenaServer exposes the battle core over a JSON HTTP API.
type ArenaServer struct {
	battleSvc    *service.BattleService
	inventorySvc *service.InventoryService
	participants *repository.ParticipantRepository
	hub          *notify.Hub
	logger       zerolog.Logger
}

func NewArenaServer(
	battleSvc *service.BattleService,
	inventorySvc *service.InventoryService,
	participants *repository.ParticipantRepository,
	hub *notify.Hub,
	logger zerolog.Logger,
) *ArenaServer {
	return &ArenaServer{
		battleSvc:    battleSvc,
		inventorySvc: inventorySvc,
		participants: participants,
		hub:          hub,
		logger:       logger,
	}
}

func (s *ArenaServer) Routes() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/battle/use", s.handleUseItem).Methods(http.MethodPost)
	v1.HandleFunc("/battle/logs", s.handleListLogs).Methods(http.MethodGet)

	v1.HandleFunc("/inventory/transfer", s.handleTransfer).Methods(http.MethodPost)
	v1.HandleFunc("/inventory/{ownerID}", s.handleGetInventory).Methods(http.MethodGet)
	v1.HandleFunc("/inventory/{ownerID}/quantity", s.handleGetQuantity).Methods(http.MethodGet)

	v1.HandleFunc("/participants", s.handleListParticipants).Methods(http.MethodGet)
	v1.HandleFunc("/participants/{id}", s.handleGetParticipant).Methods(http.MethodGet)
	v1.HandleFunc("/teams", s.handleListTeams).Methods(http.MethodGet)
	v1.HandleFunc("/teams/{name}/members", s.handleGetTeamMembers).Methods(http.MethodGet)
	v1.HandleFunc("/items", s.handleListItems).Methods(http.MethodGet)

	v1.HandleFunc("/admin/participants", s.handleCreateParticipant).Methods(http.MethodPost)
	v1.HandleFunc("/admin/teams", s.handleCreateTeam).Methods(http.MethodPost)
	v1.HandleFunc("/admin/grants", s.handleGrant).Methods(http.MethodPost)
	v1.HandleFunc("/admin/teams/{name}/injuries", s.handleTeamInjuryDelta).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.hub.HandleWS)

	return r
}

type useItemRequest struct {
	ActorID         string `json:"actor_id"`
	InventoryItemID string `json:"inventory_item_id"`
	TargetID        string `json:"target_id"`
}

type effectResultResponse struct {
	OutcomeKind            string   `json:"outcome_kind"`
	Effect                 string   `json:"effect"`
	ActorID                string   `json:"actor_id"`
	AffectedParticipantIDs []string `json:"affected_participant_ids"`
	BlockedParticipantIDs  []string `json:"blocked_participant_ids,omitempty"`
	FailedParticipantIDs   []string `json:"failed_participant_ids,omitempty"`
	Message                string   `json:"message"`
}

func (s *ArenaServer) handleUseItem(w http.ResponseWriter, r *http.Request) {
	var req useItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ActorID == "" || req.InventoryItemID == "" {
		writeError(w, http.StatusBadRequest, "actor_id and inventory_item_id are required")
		return
	}

	result, err := s.battleSvc.UseItem(r.Context(), req.ActorID, req.InventoryItemID, req.TargetID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, effectResultResponse{
		OutcomeKind:            string(result.OutcomeKind),
		Effect:                 string(result.Effect),
		ActorID:                result.ActorID,
		AffectedParticipantIDs: result.AffectedParticipantIDs,
		BlockedParticipantIDs:  result.BlockedParticipantIDs,
		FailedParticipantIDs:   result.FailedParticipantIDs,
		Message:                result.Message,
	})
}

type transferRequest struct {
	FromID          string `json:"from_id"`
	ToID            string `json:"to_id"`
	InventoryItemID string `json:"inventory_item_id"`
}

func (s *ArenaServer) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.FromID == "" || req.ToID == "" || req.InventoryItemID == "" {
		writeError(w, http.StatusBadRequest, "from_id, to_id and inventory_item_id are required")
		return
	}

	if err := s.inventorySvc.Transfer(r.Context(), req.FromID, req.ToID, req.InventoryItemID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (s *ArenaServer) handleGetParticipant(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, err := s.battleSvc.GetParticipant(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participantResponse(*p))
}

func (s *ArenaServer) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("active") != "true" {
		writeError(w, http.StatusBadRequest, "only active=true listing is supported")
		return
	}

	participants, err := s.battleSvc.GetActiveParticipants(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participantListResponse(participants))
}

func (s *ArenaServer) handleGetTeamMembers(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	members, err := s.battleSvc.GetTeamMembers(r.Context(), name)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participantListResponse(members))
}

func (s *ArenaServer) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.participants.ListTeams(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (s *ArenaServer) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.inventorySvc.ListItems(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *ArenaServer) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerID"]

	items, err := s.inventorySvc.GetByOwner(r.Context(), ownerID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *ArenaServer) handleGetQuantity(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["ownerID"]
	itemID := r.URL.Query().Get("item_id")
	if itemID == "" {
		writeError(w, http.StatusBadRequest, "item_id is required")
		return
	}

	quantity, err := s.inventorySvc.GetQuantity(r.Context(), ownerID, itemID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"quantity": quantity})
}

func (s *ArenaServer) handleListLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	logs, err := s.battleSvc.GetLogs(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

type createParticipantRequest struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Team        string `json:"team"`
}

func (s *ArenaServer) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	var req createParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" || req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "id and display_name are required")
		return
	}

	if err := s.participants.Create(r.Context(), req.ID, req.DisplayName, req.Team); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": req.ID})
}

type createTeamRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *ArenaServer) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	team, err := s.participants.CreateTeam(r.Context(), req.Name, req.Color)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

type grantRequest struct {
	OwnerID  string `json:"owner_id"`
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

func (s *ArenaServer) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "owner_id and item_id are required")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := s.inventorySvc.Grant(r.Context(), req.OwnerID, req.ItemID, req.Quantity); err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}

type teamInjuryDeltaRequest struct {
	Delta int `json:"delta"`
}

func (s *ArenaServer) handleTeamInjuryDelta(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req teamInjuryDeltaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Delta == 0 {
		writeError(w, http.StatusBadRequest, "delta must be non-zero")
		return
	}

	result, err := s.battleSvc.ApplyTeamInjuryDelta(r.Context(), name, req.Delta)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"affected_count":         result.AffectedCount,
		"failed_participant_ids": result.FailedParticipantIDs,
	})
}

type participantView struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Team         string `json:"team,omitempty"`
	Injuries     int    `json:"injuries"`
	IsEliminated bool   `json:"is_eliminated"`
}

func participantResponse(p domain.Participant) participantView {
	return participantView{
		ID:           p.ID,
		DisplayName:  p.DisplayName,
		Team:         p.Team,
		Injuries:     p.Injuries,
		IsEliminated: p.IsEliminated,
	}
}

func participantListResponse(participants []domain.Participant) []participantView {
	views := make([]participantView, 0, len(participants))
	for _, p := range participants {
		views = append(views, participantResponse(p))
	}
	return views
}

func (s *ArenaServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrMissingTarget), errors.Is(err, domain.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrPermission):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrCapExceeded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConcurrency):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
