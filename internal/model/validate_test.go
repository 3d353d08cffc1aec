package model

import (
	"errors"
	"strings"
	"testing"
)

const validPayload = `{
	"id": 7,
	"nodes": [
		{"id": 1, "type": "input", "activation": "identity", "bias": 0.0, "threshold": 0.5},
		{"id": 2, "type": "hidden", "activation": "sigmoid", "bias": -0.25, "threshold": 0.5},
		{"id": 3, "type": "output", "activation": "tanh", "bias": 0.1, "threshold": 0.5}
	],
	"connections": [
		{"id": 1, "from": 1, "to": 2, "weight": 0.9, "plasticity": 0.1, "enabled": true},
		{"id": 2, "from": 2, "to": 3, "weight": -0.8, "plasticity": 0.0, "enabled": false}
	],
	"gp": 12.5,
	"fitness": 0.75,
	"age": 3
}`

func TestDecodeSnapshotValid(t *testing.T) {
	snap, err := DecodeSnapshot([]byte(validPayload))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.ID != 7 {
		t.Fatalf("id = %d, want 7", snap.ID)
	}
	if len(snap.Nodes) != 3 || len(snap.Connections) != 2 {
		t.Fatalf("got %d nodes %d connections", len(snap.Nodes), len(snap.Connections))
	}
	if snap.Nodes[1].Type != NodeHidden || snap.Nodes[1].Bias != -0.25 {
		t.Fatalf("unexpected node: %+v", snap.Nodes[1])
	}
	if snap.Connections[1].Enabled {
		t.Fatalf("connection 2 should be disabled")
	}
	if snap.GP != 12.5 || snap.Fitness != 0.75 || snap.Age != 3 {
		t.Fatalf("unexpected scalars: %+v", snap)
	}
}

func TestDecodeSnapshotRejects(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		field   string
	}{
		{"not an object", `[1,2,3]`, "payload"},
		{"missing nodes", `{"id":1,"connections":[],"gp":0,"fitness":0,"age":0}`, "nodes"},
		{"nodes not array", `{"id":1,"nodes":{},"connections":[],"gp":0,"fitness":0,"age":0}`, "nodes"},
		{"gp not number", `{"id":1,"nodes":[],"connections":[],"gp":"x","fitness":0,"age":0}`, "gp"},
		{"missing age", `{"id":1,"nodes":[],"connections":[],"gp":0,"fitness":0}`, "age"},
		{
			"node missing bias",
			`{"id":1,"nodes":[{"id":1,"type":"input","activation":"identity","threshold":0}],"connections":[],"gp":0,"fitness":0,"age":0}`,
			"nodes[0].bias",
		},
		{
			"node empty type",
			`{"id":1,"nodes":[{"id":1,"type":"","activation":"identity","bias":0,"threshold":0}],"connections":[],"gp":0,"fitness":0,"age":0}`,
			"nodes[0].type",
		},
		{
			"connection missing enabled",
			`{"id":1,"nodes":[],"connections":[{"id":1,"from":1,"to":2,"weight":0.5,"plasticity":0}],"gp":0,"fitness":0,"age":0}`,
			"connections[0].enabled",
		},
		{
			"connection weight not number",
			`{"id":1,"nodes":[],"connections":[{"id":1,"from":1,"to":2,"weight":"w","plasticity":0,"enabled":true}],"gp":0,"fitness":0,"age":0}`,
			"connections[0].weight",
		},
	}
	for _, tc := range cases {
		_, err := DecodeSnapshot([]byte(tc.payload))
		if err == nil {
			t.Fatalf("%s: decode accepted malformed payload", tc.name)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%s: error is %T, want *ValidationError", tc.name, err)
		}
		if verr.Field != tc.field {
			t.Fatalf("%s: field %q, want %q", tc.name, verr.Field, tc.field)
		}
	}
}

func TestPayloadShape(t *testing.T) {
	shape := PayloadShape([]byte(`{"nodes":[{"id":1}],"gp":"oops","ok":true}`))
	for _, want := range []string{"object{", "nodes:array(1 of object{id:number})", "gp:string", "ok:bool"} {
		if !strings.Contains(shape, want) {
			t.Fatalf("shape %q missing %q", shape, want)
		}
	}
	if got := PayloadShape([]byte(`{{`)); !strings.Contains(got, "unparseable") {
		t.Fatalf("shape of garbage = %q", got)
	}
}
