package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/claims-idp/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for claim processing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		proc, st, err := newProcessor(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		r := chi.NewRouter()
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			if err := st.Ping(req.Context()); err != nil {
				zap.L().Error("health check failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Route("/claims", func(r chi.Router) {
			r.Post("/process", handleProcess(proc))
			r.Get("/{number}", handleGetClaim(proc))
			r.Get("/{number}/summary", handleGetSummary(proc))
			r.Get("/{number}/score", handleGetScore(proc))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func handleProcess(proc *pipeline.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			ClaimNumber         string `json:"claim_number"`
			PolicyHolder        string `json:"policy_holder"`
			ClaimType           string `json:"claim_type"`
			PolicyNumber        string `json:"policy_number"`
			IncidentDescription string `json:"incident_description"`
			DocumentsFolder     string `json:"documents_folder"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		result, err := proc.ProcessClaim(req.Context(), pipeline.ProcessInput{
			ClaimNumber:         body.ClaimNumber,
			PolicyHolder:        body.PolicyHolder,
			ClaimType:           body.ClaimType,
			PolicyNumber:        body.PolicyNumber,
			IncidentDescription: body.IncidentDescription,
			DocumentsFolder:     body.DocumentsFolder,
		})
		if err != nil {
			if pipeline.IsValidationError(err) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			zap.L().Error("process claim failed",
				zap.String("claim_number", body.ClaimNumber),
				zap.Error(err),
			)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "processing failed"})
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func handleGetClaim(proc *pipeline.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		number := chi.URLParam(req, "number")

		claim, docs, err := proc.GetClaim(req.Context(), number)
		if err != nil {
			respondLookupError(w, number, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"claim":     claim,
			"documents": docs,
		})
	}
}

func handleGetSummary(proc *pipeline.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		number := chi.URLParam(req, "number")

		summary, err := proc.LatestSummary(req.Context(), number)
		if err != nil {
			respondLookupError(w, number, err)
			return
		}
		if summary == "" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no summary recorded"})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"claim_number": number,
			"summary":      summary,
		})
	}
}

func handleGetScore(proc *pipeline.Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		number := chi.URLParam(req, "number")

		fs, err := proc.LatestFraudScore(req.Context(), number)
		if err != nil {
			respondLookupError(w, number, err)
			return
		}
		if fs == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no fraud score recorded"})
			return
		}

		writeJSON(w, http.StatusOK, fs)
	}
}

func respondLookupError(w http.ResponseWriter, number string, err error) {
	if errors.Is(err, pipeline.ErrClaimNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "claim not found"})
		return
	}
	zap.L().Error("claim lookup failed",
		zap.String("claim_number", number),
		zap.Error(err),
	)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "lookup failed"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
