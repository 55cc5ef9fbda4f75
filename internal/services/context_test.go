package services_test

import (
	"context"
	"testing"

	"discrip/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithStage(ctx, "ripping")
	ctx = services.WithDevice(ctx, "/dev/sr0")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "ripping" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if dev, ok := services.DeviceFromContext(ctx); !ok || dev != "/dev/sr0" {
		t.Fatalf("unexpected device: %v %v", dev, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected blank stage to be ignored")
	}
}
