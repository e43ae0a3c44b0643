package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bher20/eimpactmanager/internal/calc"
	"github.com/bher20/eimpactmanager/internal/factors"
	"github.com/bher20/eimpactmanager/internal/metrics"
	"github.com/bher20/eimpactmanager/internal/rules"
	"github.com/bher20/eimpactmanager/internal/usage"
)

type usageRequest struct {
	Usage    calc.EnergyUsage `json:"usage"`
	Location string           `json:"location"`
}

type roiRequest struct {
	usageRequest
	calc.ROIInput
}

type incentivesRequest struct {
	Category           string  `json:"category"`
	ImplementationCost float64 `json:"implementation_cost"`
	Location           string  `json:"location"`
}

type priorityRequest struct {
	ROIMonths     calc.Figure `json:"roi_months"`
	AnnualSavings float64     `json:"annual_savings"`
	CO2Tons       float64     `json:"co2_tons"`
	Difficulty    string      `json:"difficulty"`
	EnergyUsage   float64     `json:"energy_usage"`
}

type equivalentsRequest struct {
	CO2Tons float64 `json:"co2_tons"`
}

type solarRequest struct {
	FacilitySqft  float64  `json:"facility_sqft"`
	RoofUsablePct *float64 `json:"roof_usable_percent,omitempty"`
	Location      string   `json:"location"`
}

type regionsResponse struct {
	Priority []string                 `json:"priority"`
	Location string                   `json:"location,omitempty"`
	Region   string                   `json:"region,omitempty"`
	Factors  *factors.RegionalFactors `json:"factors,omitempty"`
}

// regions lists the region match order and, with ?location=, the factors that
// location resolves to.
func (s *server) regions(w http.ResponseWriter, r *http.Request) {
	resp := regionsResponse{Priority: s.Calculator.Factors().Regions.Priority()}
	if loc := r.URL.Query().Get("location"); loc != "" {
		key, f := s.Calculator.Region(loc)
		resp.Location = loc
		resp.Region = key
		resp.Factors = &f
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) decodeUsage(w http.ResponseWriter, r *http.Request, dst *usageRequest) bool {
	if !decodeJSON(w, r, dst) {
		return false
	}
	if err := dst.Usage.Validate(); err != nil {
		writeServiceError(w, r, err)
		return false
	}
	return true
}

func (s *server) carbon(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if !s.decodeUsage(w, r, &req) {
		return
	}
	metrics.ObserveCalculation("carbon")
	writeJSON(w, http.StatusOK, s.Calculator.Carbon(req.Usage, req.Location))
}

func (s *server) cost(w http.ResponseWriter, r *http.Request) {
	var req usageRequest
	if !s.decodeUsage(w, r, &req) {
		return
	}
	metrics.ObserveCalculation("cost")
	writeJSON(w, http.StatusOK, s.Calculator.Cost(req.Usage, req.Location))
}

func (s *server) roi(w http.ResponseWriter, r *http.Request) {
	var req roiRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Usage.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.ImplementationCost < 0 || req.SavingsPercent < 0 {
		writeError(w, http.StatusBadRequest, "savings_percent and implementation_cost must not be negative")
		return
	}
	metrics.ObserveCalculation("roi")
	writeJSON(w, http.StatusOK, s.Calculator.ROI(req.ROIInput, req.Usage, req.Location))
}

func (s *server) incentives(w http.ResponseWriter, r *http.Request) {
	var req incentivesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ImplementationCost < 0 {
		writeError(w, http.StatusBadRequest, "implementation_cost must not be negative")
		return
	}
	metrics.ObserveCalculation("incentives")
	writeJSON(w, http.StatusOK, s.Calculator.Incentives(req.Category, req.ImplementationCost, req.Location))
}

func (s *server) priority(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	d, err := calc.ParseDifficulty(req.Difficulty)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	metrics.ObserveCalculation("priority")
	score := s.Calculator.Priority(req.ROIMonths, req.AnnualSavings, req.CO2Tons, d, req.EnergyUsage)
	writeJSON(w, http.StatusOK, map[string]float64{"priority_score": score})
}

func (s *server) equivalents(w http.ResponseWriter, r *http.Request) {
	var req equivalentsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	metrics.ObserveCalculation("equivalents")
	writeJSON(w, http.StatusOK, s.Calculator.Equivalents(req.CO2Tons))
}

func (s *server) solar(w http.ResponseWriter, r *http.Request) {
	var req solarRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	roof := calc.DefaultRoofUsablePct
	if req.RoofUsablePct != nil {
		roof = *req.RoofUsablePct
	}
	if req.FacilitySqft < 0 || roof < 0 || roof > 1 {
		writeError(w, http.StatusBadRequest, "facility_sqft must not be negative and roof_usable_percent must be within [0, 1]")
		return
	}
	metrics.ObserveCalculation("solar")
	writeJSON(w, http.StatusOK, s.Calculator.Solar(req.FacilitySqft, roof, req.Location))
}

func (s *server) recommendations(w http.ResponseWriter, r *http.Request) {
	var req rules.Request
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.Usage.Validate(); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res := s.Rules.Recommend(req)
	metrics.ObserveCalculation("recommendations")
	metrics.RecommendationsServed.Observe(float64(len(res.Recommendations)))
	writeJSON(w, http.StatusOK, res)
}

// importUsage parses a bill sent as a multipart "bill" file, a raw PDF body
// or plain text.
func (s *server) importUsage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	var data []byte
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, ferr := r.FormFile("bill")
		if ferr != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("bill upload: %v", ferr))
			return
		}
		defer file.Close()
		data, err = io.ReadAll(file)
	} else {
		data, err = io.ReadAll(r.Body)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read bill: %v", err))
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty bill")
		return
	}

	var bill *usage.Bill
	if usage.IsPDF(data) {
		bill, err = usage.ParsePDFReader(bytes.NewReader(data), int64(len(data)))
	} else {
		bill, err = usage.ParseText(string(data))
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	metrics.ObserveCalculation("usage_import")
	writeJSON(w, http.StatusOK, bill)
}
