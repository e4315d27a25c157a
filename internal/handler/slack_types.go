package handler

// Slack Events API envelope

type EventCallback struct {
	Type      string      `json:"type"`
	Challenge string      `json:"challenge,omitempty"`
	TeamID    string      `json:"team_id,omitempty"`
	EventID   string      `json:"event_id,omitempty"`
	Event     *InnerEvent `json:"event,omitempty"`
}

type InnerEvent struct {
	Type    string `json:"type"`
	User    string `json:"user,omitempty"`
	Tab     string `json:"tab,omitempty"`
	Channel string `json:"channel,omitempty"`
}

// Slack interactivity payload (the "payload" form field)

type InteractionPayload struct {
	Type      string          `json:"type"` // block_actions, view_submission
	TriggerID string          `json:"trigger_id,omitempty"`
	User      InteractionUser `json:"user"`
	Team      InteractionTeam `json:"team"`
	Actions   []ActionEntry   `json:"actions,omitempty"`
	View      *ViewPayload    `json:"view,omitempty"`
}

type InteractionUser struct {
	ID string `json:"id"`
}

type InteractionTeam struct {
	ID string `json:"id"`
}

type ActionEntry struct {
	ActionID string `json:"action_id"`
	Value    string `json:"value,omitempty"`
}

type ViewPayload struct {
	CallbackID string    `json:"callback_id"`
	State      ViewState `json:"state"`
}

type ViewState struct {
	Values map[string]map[string]ViewValue `json:"values"`
}

type ViewValue struct {
	Type           string          `json:"type,omitempty"`
	Value          string          `json:"value,omitempty"`
	SelectedOption *SelectedOption `json:"selected_option,omitempty"`
}

type SelectedOption struct {
	Value string `json:"value"`
}

// InputValue digs a plain text input out of the view state.
func (s ViewState) InputValue(blockID, actionID string) string {
	if block, ok := s.Values[blockID]; ok {
		return block[actionID].Value
	}
	return ""
}

// SelectedValue digs a radio/select choice out of the view state.
func (s ViewState) SelectedValue(blockID, actionID string) string {
	if block, ok := s.Values[blockID]; ok {
		if opt := block[actionID].SelectedOption; opt != nil {
			return opt.Value
		}
	}
	return ""
}

// NewErrorsResponse tells Slack to render field errors in an open modal.
func NewErrorsResponse(errors map[string]string) map[string]any {
	return map[string]any{
		"response_action": "errors",
		"errors":          errors,
	}
}
