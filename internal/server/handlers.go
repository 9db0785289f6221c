package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/echovoice/echovoice/internal/assist"
	"github.com/echovoice/echovoice/internal/escalate"
	"github.com/echovoice/echovoice/internal/history"
	"github.com/echovoice/echovoice/pkg/types"
)

// defaultHistoryLimit bounds /api/history responses when no limit is given.
const defaultHistoryLimit = 50

// Handlers exposes the assistant over HTTP.
type Handlers struct {
	assistant *assist.Assistant
}

// NewHandlers creates the API handler set.
func NewHandlers(assistant *assist.Assistant) *Handlers {
	return &Handlers{assistant: assistant}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("ERROR: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// GetHealth reports overall assistant health: detector states and the
// suggestion backend circuit.
func (h *Handlers) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"detectors": h.assistant.DetectorStatuses(),
		"breaker":   h.assistant.BreakerState(),
	})
}

// GetContext returns the current fused context snapshot.
func (h *Handlers) GetContext(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.assistant.Context())
}

// GetSuggestions returns the cached suggestion list.
func (h *Handlers) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, source := h.assistant.Suggestions()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"source":      source,
	})
}

// RefreshSuggestions recomputes suggestions for the current context.
func (h *Handlers) RefreshSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, source := h.assistant.SuggestNow(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"source":      source,
	})
}

type speakRequest struct {
	Phrase   string `json:"phrase"`
	Category string `json:"category"`
	Source   string `json:"source"`
}

// PostSpeak speaks a phrase aloud and records it in history.
func (h *Handlers) PostSpeak(w http.ResponseWriter, r *http.Request) {
	var req speakRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if req.Phrase == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PHRASE", "phrase is required")
		return
	}

	if err := h.assistant.Speak(r.Context(), req.Phrase, req.Category, req.Source); err != nil {
		writeError(w, http.StatusBadGateway, "SPEECH_FAILED", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "spoken"})
}

type personRequest struct {
	Name string `json:"name"`
}

// PostPerson pins or clears the nearby-person override.
func (h *Handlers) PostPerson(w http.ResponseWriter, r *http.Request) {
	var req personRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	h.assistant.SelectPerson(req.Name)
	writeJSON(w, http.StatusOK, h.assistant.Context())
}

type locationRequest struct {
	Label string `json:"label"`
}

// PostLocation pins or clears the location override.
func (h *Handlers) PostLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	h.assistant.SelectLocation(req.Label)
	writeJSON(w, http.StatusOK, h.assistant.Context())
}

type toneRequest struct {
	Tone string `json:"tone"`
}

// PostTone sets the communication style.
func (h *Handlers) PostTone(w http.ResponseWriter, r *http.Request) {
	var req toneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid JSON body")
		return
	}
	if err := h.assistant.SetTone(req.Tone); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_TONE", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.assistant.Context())
}

// PostEmergencyPress reports the emergency button going down.
func (h *Handlers) PostEmergencyPress(w http.ResponseWriter, r *http.Request) {
	h.assistant.EmergencyPress()
	h.writeEmergencyState(w)
}

// PostEmergencyRelease reports the emergency button coming up.
func (h *Handlers) PostEmergencyRelease(w http.ResponseWriter, r *http.Request) {
	h.assistant.EmergencyRelease()
	h.writeEmergencyState(w)
}

// PostEmergencyCancel aborts an armed emergency.
func (h *Handlers) PostEmergencyCancel(w http.ResponseWriter, r *http.Request) {
	if !h.assistant.EmergencyCancel() {
		writeError(w, http.StatusConflict, "NO_COUNTDOWN", "no emergency countdown to cancel")
		return
	}
	h.writeEmergencyState(w)
}

// PostEmergencyConfirm confirms an armed emergency immediately.
func (h *Handlers) PostEmergencyConfirm(w http.ResponseWriter, r *http.Request) {
	if !h.assistant.EmergencyConfirm() {
		writeError(w, http.StatusConflict, "NO_COUNTDOWN", "no emergency countdown to confirm")
		return
	}
	h.writeEmergencyState(w)
}

// GetEmergency returns the trigger state, the armed event, and the last
// dispatch result.
func (h *Handlers) GetEmergency(w http.ResponseWriter, r *http.Request) {
	h.writeEmergencyState(w)
}

func (h *Handlers) writeEmergencyState(w http.ResponseWriter) {
	state, event := h.assistant.EmergencyState()

	payload := map[string]interface{}{"state": string(state)}
	if event != nil {
		payload["event"] = event
	}
	if last := h.assistant.LastDispatch(); last != nil {
		payload["last_dispatch"] = dispatchView(*last)
	}
	writeJSON(w, http.StatusOK, payload)
}

// dispatchView flattens a dispatch result for JSON, stringifying the channel
// errors.
func dispatchView(r escalate.DispatchResult) map[string]interface{} {
	view := map[string]interface{}{
		"outcome":       r.Outcome,
		"message":       r.Message,
		"success_count": r.SuccessCount,
		"total_count":   r.TotalCount,
	}
	if r.SpeechErr != nil {
		view["speech_error"] = r.SpeechErr.Error()
	}
	if r.HistoryErr != nil {
		view["history_error"] = r.HistoryErr.Error()
	}
	contacts := make([]map[string]interface{}, 0, len(r.ContactResults))
	for _, cr := range r.ContactResults {
		entry := map[string]interface{}{
			"name": cr.Contact.Name,
			"ok":   cr.Ok,
		}
		if cr.Err != nil {
			entry["error"] = cr.Err.Error()
		}
		contacts = append(contacts, entry)
	}
	view["contacts"] = contacts
	return view
}

// GetHistory returns recent spoken phrases, newest first.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	records, err := h.assistant.History(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "HISTORY_FAILED", err.Error())
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

// suggestionsMessage is the websocket payload for suggestion updates.
type suggestionsMessage struct {
	Type        string             `json:"type"`
	Suggestions []types.Suggestion `json:"suggestions"`
	Source      string             `json:"source"`
}

// emergencyMessage is the websocket payload for emergency transitions.
type emergencyMessage struct {
	Type  string               `json:"type"`
	Stage string               `json:"stage"`
	Event types.EmergencyEvent `json:"event"`
}

// dispatchMessage is the websocket payload for escalation results.
type dispatchMessage struct {
	Type   string                 `json:"type"`
	Result map[string]interface{} `json:"result"`
}
