package cli

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/corepkg/extractor/pkg/pipeline"
	"github.com/corepkg/extractor/pkg/render/dot"
	"github.com/corepkg/extractor/pkg/report"
)

func newServeCmd() *cobra.Command {
	var payloadDir string
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the extraction report over HTTP",
		Long: `Serve runs the pipeline once and exposes the results: the JSON report,
the README, the rendered graph, and per-package detail endpoints. Useful
for previewing a run before publishing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, _, err := runExtraction(cmd, payloadDir)
			if err != nil {
				return err
			}

			logger := loggerFromContext(cmd.Context())
			logger.Info("serving report", "addr", addr, "run", result.RunID)

			srv := &http.Server{
				Addr:              addr,
				Handler:           newServeHandler(result),
				ReadHeaderTimeout: 5 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				_ = srv.Close()
			}()

			if err := srv.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&payloadDir, "payload", "", "scan a local payload directory instead of downloading")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}

// newServeHandler builds the HTTP routes over a finished run.
func newServeHandler(result *pipeline.Result) http.Handler {
	rep := report.Build(result)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/report", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = rep.WriteJSON(w)
	})

	r.Get("/readme", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_ = rep.WriteReadme(w, result)
	})

	r.Get("/graph.svg", func(w http.ResponseWriter, req *http.Request) {
		source := dot.ToDOT(result.Graph, result.Resolution, dot.Options{})
		svg, err := dot.RenderSVG(req.Context(), source)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	})

	r.Get("/packages/{id}", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		p, ok := rep.Package(id)
		if !ok {
			http.Error(w, "package not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	})

	return r
}
