package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Recognized power actions understood by the compute API.
const (
	ActionPowerUp  = "powerup"
	ActionShutdown = "shutdown"
)

// ErrUnknownAction is returned for action names the compute API does not accept.
var ErrUnknownAction = errors.New("unknown action")

// KnownActions lists the action names accepted by the compute API.
var KnownActions = []string{ActionPowerUp, ActionShutdown}

// Action is a named VM power operation with optional parameters (e.g. "force").
// It serializes to the flat body expected by the action endpoint:
//
//	{"action": "shutdown", "force": false}
type Action struct {
	Name   string
	Params map[string]any
}

// PowerUp returns the action that starts a VM.
func PowerUp() Action {
	return Action{Name: ActionPowerUp}
}

// Shutdown returns the action that stops a VM. force requests a hard power-off.
func Shutdown(force bool) Action {
	return Action{Name: ActionShutdown, Params: map[string]any{"force": force}}
}

// Validate checks that the action name is recognized and that no parameter
// shadows the "action" key.
func (a Action) Validate() error {
	if !slices.Contains(KnownActions, a.Name) {
		return fmt.Errorf("%w %q (supported: %v)", ErrUnknownAction, a.Name, KnownActions)
	}
	if _, ok := a.Params["action"]; ok {
		return fmt.Errorf("action parameter %q is reserved", "action")
	}
	return nil
}

// Body returns the request payload for the action endpoint.
func (a Action) Body() map[string]any {
	body := make(map[string]any, len(a.Params)+1)
	maps.Copy(body, a.Params)
	body["action"] = a.Name
	return body
}

// MarshalJSON flattens the parameters next to the action name.
func (a Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Body())
}

func (a Action) String() string {
	return a.Name
}
