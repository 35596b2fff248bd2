package services_test

import (
	"context"
	"testing"

	"iconsort/internal/services"
)

func TestContextValues(t *testing.T) {
	run := services.WithRunID(context.Background(), "run-7")
	a := services.WithItemID(services.WithStage(run, "classify"), "item-a")
	b := services.WithItemID(run, "item-b")

	tests := []struct {
		name string
		get  func(context.Context) (string, bool)
		ctx  context.Context
		want string
	}{
		{"run id inherited by items", services.RunIDFromContext, a, "run-7"},
		{"item a", services.ItemIDFromContext, a, "item-a"},
		{"item b keeps its own id", services.ItemIDFromContext, b, "item-b"},
		{"stage", services.StageFromContext, a, "classify"},
		{"stage absent on sibling", services.StageFromContext, b, ""},
		{"blank id ignored", services.ItemIDFromContext, services.WithItemID(a, ""), "item-a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.get(tt.ctx)
			if got != tt.want || ok != (tt.want != "") {
				t.Fatalf("got (%q, %v), want %q", got, ok, tt.want)
			}
		})
	}
}
