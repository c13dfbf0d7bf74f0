package server

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"

	"github.com/everstacklabs/modelfeed/internal/artifact"
)

var codec = sonic.ConfigStd

const jsonContentType = "application/json; charset=utf-8"

// handleModels serves the list artifact. Supports ?provider= filtering
// and ?format=csv; both are projections of the materialized list, not
// query-engine features.
func (s *Server) handleModels(c *gin.Context) {
	data, tier, err := s.reader.Get(c.Request.Context(), artifact.KindList)
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	c.Header(servedFromHeader, string(tier))

	provider := c.Query("provider")
	format := c.Query("format")
	if provider == "" && format != "csv" {
		c.Data(http.StatusOK, jsonContentType, data)
		return
	}

	records, err := artifact.DecodeList(data)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "corrupt list artifact")
		return
	}
	if provider != "" {
		filtered := records[:0]
		for _, r := range records {
			if r.ProviderID == provider {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	if format == "csv" {
		writeCSV(c, records)
		return
	}
	c.JSON(http.StatusOK, records)
}

// handleModel serves one record out of the map artifact.
func (s *Server) handleModel(c *gin.Context) {
	data, tier, err := s.reader.Get(c.Request.Context(), artifact.KindMap)
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	c.Header(servedFromHeader, string(tier))

	var byID map[string]rawJSON
	if err := codec.Unmarshal(data, &byID); err != nil {
		respondError(c, http.StatusInternalServerError, "corrupt map artifact")
		return
	}
	entry, ok := byID[c.Param("id")]
	if !ok {
		respondError(c, http.StatusNotFound, "unknown model id")
		return
	}
	c.Data(http.StatusOK, jsonContentType, entry)
}

func (s *Server) handleProviders(c *gin.Context) {
	s.serveArtifact(c, artifact.KindProviders)
}

func (s *Server) handleMetadata(c *gin.Context) {
	s.serveArtifact(c, artifact.KindMetadata)
}

func (s *Server) serveArtifact(c *gin.Context, kind artifact.Kind) {
	data, tier, err := s.reader.Get(c.Request.Context(), kind)
	if err != nil {
		respondError(c, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	c.Header(servedFromHeader, string(tier))
	c.Data(http.StatusOK, jsonContentType, data)
}

// handleHealth reports liveness plus the metadata of whatever the read
// path currently serves.
func (s *Server) handleHealth(c *gin.Context) {
	data, tier, err := s.reader.Get(c.Request.Context(), artifact.KindMetadata)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	var meta artifact.Metadata
	if err := codec.Unmarshal(data, &meta); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"served_from":  tier,
		"generated_at": meta.GeneratedAt,
		"record_count": meta.RecordCount,
	})
}

// handleRefresh is the authenticated manual trigger. Without force, the
// change detector's cheap check runs first.
func (s *Server) handleRefresh(c *gin.Context) {
	force := c.Query("force") == "1" || c.Query("force") == "true"

	result, err := s.refresher.Run(c.Request.Context(), force)
	if err != nil {
		respondError(c, http.StatusBadGateway, "refresh failed: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"outcome": result.Outcome,
		"version": result.Version,
		"models":  result.RecordCount,
		"etag":    result.ETag,
	})
}

// rawJSON defers per-record decoding; map entries are served verbatim.
type rawJSON []byte

func (r *rawJSON) UnmarshalJSON(data []byte) error {
	*r = append((*r)[:0], data...)
	return nil
}

func (r rawJSON) MarshalJSON() ([]byte, error) {
	if len(r) == 0 {
		return []byte("null"), nil
	}
	return r, nil
}

func writeCSV(c *gin.Context, records []artifact.ModelRecord) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	w := csv.NewWriter(c.Writer)

	header := []string{
		"provider_id", "model_id", "model_name", "model_type",
		"max_input_tokens", "max_output_tokens",
		"input_cost_per_million", "output_cost_per_million",
	}
	header = append(header, artifact.LegacyCapabilities...)
	_ = w.Write(header)

	for _, r := range records {
		row := []string{
			r.ProviderID, r.ModelID, r.ModelName, r.ModelType,
			intOrEmpty(r.MaxInputTokens), intOrEmpty(r.MaxOutputTokens),
			strconv.FormatFloat(r.InputCostPerMillion, 'f', -1, 64),
			strconv.FormatFloat(r.OutputCostPerMillion, 'f', -1, 64),
		}
		for _, flag := range artifact.LegacyCapabilities {
			row = append(row, strconv.FormatBool(r.Capability(flag)))
		}
		_ = w.Write(row)
	}
	w.Flush()
	// csv.Writer errors are sticky; one check covers the whole export.
	if err := w.Error(); err != nil {
		slog.Warn("writing csv export", "error", err)
	}
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
