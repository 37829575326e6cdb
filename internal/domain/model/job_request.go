package model

import (
	"fmt"
	"math"
	"strings"

	"spotbroker/internal/common"
)

type ScriptOutput struct {
	Name string `json:"name"`
	Type string `json:"type"` // "number", "boolean", "string"
}

type ScriptDesc struct {
	File    string         `json:"file,omitempty"`
	Outputs []ScriptOutput `json:"outputs,omitempty"`
}

// Resource describes the commodity being sold and how it is priced.
type Resource struct {
	UserRequirements       []string       `json:"user_requirements,omitempty"`
	ProviderRequirements   []string       `json:"provider_requirements,omitempty"`
	EvaluateProviderScript ScriptDesc     `json:"evaluate_provider_script"`
	EvaluateInputsScript   ScriptDesc     `json:"evaluate_inputs_script"`
	Cost                   string         `json:"cost"` // Cost expression over the charge variables
	GetProviderData        []ScriptOutput `json:"get_provider_data,omitempty"`
}

type ScriptParameters struct {
	Command string `json:"command"`
}

// JobRequest is the single inbound message of a client session.
type JobRequest struct {
	Resource         Resource         `json:"resource"`
	BidPrice         float64          `json:"bid_price"`
	ScriptParameters ScriptParameters `json:"script_parameters"`
	UserAccount      int64            `json:"user_account"`
}

func (r JobRequest) Validate() error {
	if math.IsNaN(r.BidPrice) || math.IsInf(r.BidPrice, 0) {
		return fmt.Errorf("bid_price must be a finite number: %w", common.ErrValidation)
	}
	if r.BidPrice < 0 {
		return fmt.Errorf("bid_price must be >= 0, got %v: %w", r.BidPrice, common.ErrValidation)
	}
	if r.UserAccount == 0 {
		return fmt.Errorf("user_account is required: %w", common.ErrValidation)
	}
	if strings.TrimSpace(r.ScriptParameters.Command) == "" {
		return fmt.Errorf("script_parameters.command is required: %w", common.ErrValidation)
	}
	if strings.TrimSpace(r.Resource.Cost) == "" {
		return fmt.Errorf("resource.cost is required: %w", common.ErrValidation)
	}
	return nil
}
