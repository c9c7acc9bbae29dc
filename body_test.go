// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Roman Verzun

package opcua

import (
	"context"
	"reflect"
	"testing"
)

func TestBodySet(t *testing.T) {
	body := Body{}.
		Set("pump1.speed", 1500).
		Set("pump1.enabled", true).
		Set("mode", "auto")

	if got := body.Res(); got == "" {
		t.Fatal("expected non-empty document")
	}

	values := body.Values()
	want := map[string]any{
		"pump1.speed":   float64(1500),
		"pump1.enabled": true,
		"mode":          "auto",
	}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("expected %v, got %v", want, values)
	}
}

func TestBodySetRaw(t *testing.T) {
	body := Body{}.SetRaw("pump1", `{"speed": 900, "enabled": false}`)

	values := body.Values()
	if values["pump1.speed"] != float64(900) {
		t.Errorf("expected nested object flattened, got %v", values)
	}
	if values["pump1.enabled"] != false {
		t.Errorf("expected nested boolean flattened, got %v", values)
	}
}

func TestBodyArrayValueStaysWhole(t *testing.T) {
	body := Body{}.Set("outputs", []int{1, 0, 1})

	values := body.Values()
	arr, ok := values["outputs"].([]any)
	if !ok {
		t.Fatalf("expected array kept as one value, got %T", values["outputs"])
	}
	if len(arr) != 3 {
		t.Errorf("expected 3 elements, got %v", arr)
	}
}

func TestBodyEmpty(t *testing.T) {
	values := Body{}.Values()
	if len(values) != 0 {
		t.Errorf("expected no values from empty body, got %v", values)
	}
}

func TestWriteBody(t *testing.T) {
	speed := newFakeVariable("speed", 0)
	pump := newFakeObject("pump1").add(speed)
	conn := projectSpace(pump)
	client := connectedClient(t, conn)

	body := Body{}.Set("pump1.speed", 1200)
	res, err := client.WriteBody(context.Background(), body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK result, got %+v", res)
	}
	// JSON numbers surface as float64, so the write goes out as a Double
	if got := speed.lastWrite(t); got.Type != TypeDouble || got.Value != float64(1200) {
		t.Errorf("expected Double 1200 written, got %+v", got)
	}
}
