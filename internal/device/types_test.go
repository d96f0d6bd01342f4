package device

import (
	"encoding/json"
	"testing"
)

func TestCopyMapIsolatesNesting(t *testing.T) {
	src := map[string]any{
		"on": true,
		"rgb": map[string]any{
			"r": float64(255),
		},
		"tags": []any{"a", "b"},
	}

	dst := CopyMap(src)
	dst["on"] = false
	dst["rgb"].(map[string]any)["r"] = float64(0)
	dst["tags"].([]any)[0] = "x"

	if src["on"] != true {
		t.Error("top-level mutation leaked into source")
	}
	if src["rgb"].(map[string]any)["r"] != float64(255) {
		t.Error("nested map mutation leaked into source")
	}
	if src["tags"].([]any)[0] != "a" {
		t.Error("slice mutation leaked into source")
	}
}

func TestCopyMapNil(t *testing.T) {
	if CopyMap(nil) != nil {
		t.Error("CopyMap(nil) != nil")
	}
}

func TestStateJSONShape(t *testing.T) {
	s := State{
		Metadata: map[string]any{"city": "Shenzhen"},
		Devices: []Descriptor{{
			ID:   0,
			Name: "lamp",
			Type: "light",
			Param: Param{
				Present:   map[string]any{"on": false},
				Selection: map[string]any{"on": []any{SelectMarker, true, false}},
			},
		}},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	devs, ok := decoded["devices"].([]any)
	if !ok || len(devs) != 1 {
		t.Fatalf("devices = %v, want one entry", decoded["devices"])
	}
	d := devs[0].(map[string]any)
	if d["id"] != float64(0) {
		t.Errorf("id = %v, want 0", d["id"])
	}
	param := d["param"].(map[string]any)
	if _, ok := param["present"]; !ok {
		t.Error("param.present missing from wire form")
	}
	if _, ok := param["selection"]; !ok {
		t.Error("param.selection missing from wire form")
	}
}

func TestActionDecode(t *testing.T) {
	raw := `{"actions":[{"id":2,"param":{"on":true,"level":80}}]}`
	var payload struct {
		Actions []Action `json:"actions"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(payload.Actions) != 1 {
		t.Fatalf("actions = %d, want 1", len(payload.Actions))
	}
	a := payload.Actions[0]
	if a.ID != 2 || a.Param["level"] != float64(80) {
		t.Errorf("action = %+v, want id 2 with level 80", a)
	}
}
