package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/competencymatrix/internal/handler"
	"github.com/Lllllllleong/competencymatrix/internal/services"
)

var (
	rendererInstance *services.DeckRenderer
	once             sync.Once
	initErr          error
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	functions.HTTP("HandleRenderDeck", handleRenderDeck)
}

// main is required by the Go Functions Framework.
func main() {}

func handleRenderDeck(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		rt, err := handler.Runtime()
		if err != nil {
			initErr = err
			return
		}
		rendererInstance, initErr = rt.DeckRenderer(context.Background())
	})
	if initErr != nil {
		handler.InitFailed(w, initErr)
		return
	}

	handler.Serve(w, r, rendererInstance.Process)
}
