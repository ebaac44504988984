package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/competencymatrix/internal/handler"
	"github.com/Lllllllleong/competencymatrix/internal/services"
)

var (
	intakeInstance *services.DocumentIntake
	once           sync.Once
	initErr        error
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	functions.CloudEvent("IntakeDocument", intakeDocument)
}

// main is required by the Go Functions Framework.
func main() {}

// intakeDocument handles storage.object.v1.finalized events for uploaded job-card PDFs.
func intakeDocument(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		rt, err := handler.Runtime()
		if err != nil {
			initErr = err
			return
		}
		intakeInstance, initErr = rt.DocumentIntake(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var gcsEvent services.GCSEvent
	if err := e.DataAs(&gcsEvent); err != nil {
		slog.Error("Failed to decode event data", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return err
	}

	// Process logs its own failures with context.
	return intakeInstance.Process(ctx, gcsEvent)
}
