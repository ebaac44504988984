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
	generatorInstance *services.CompetencyGenerator
	once              sync.Once
	initErr           error
)

func init() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	functions.HTTP("HandleGenerateCompetency", handleGenerateCompetency)
}

// main is required by the Go Functions Framework.
func main() {}

func handleGenerateCompetency(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		rt, err := handler.Runtime()
		if err != nil {
			initErr = err
			return
		}
		generatorInstance, initErr = rt.CompetencyGenerator(context.Background())
	})
	if initErr != nil {
		handler.InitFailed(w, initErr)
		return
	}

	handler.Serve(w, r, generatorInstance.Process)
}
