package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"spotbroker/internal/common"
	"spotbroker/internal/domain/model"
)

// DiscoveryService announces this broker to the discovery service.
type DiscoveryService struct {
	baseURL string
	client  *http.Client
}

func NewDiscoveryService(addr string) *DiscoveryService {
	base := strings.TrimRight(addr, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &DiscoveryService{baseURL: base, client: &http.Client{Timeout: 10 * time.Second}}
}

type discoveryResponse struct {
	Status string `json:"status"`
}

func (s *DiscoveryService) Register(ctx context.Context, offer model.ResourceOffer) error {
	if s.baseURL == "" {
		return nil
	}

	body, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("failed to marshal resource offer: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/new-resource", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create discovery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("discovery service unreachable: %v: %w", err, common.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	var out discoveryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || resp.StatusCode != http.StatusOK || out.Status != "ok" {
		return fmt.Errorf("discovery service rejected offer (status %d, %q): %w", resp.StatusCode, out.Status, common.ErrServiceUnavailable)
	}
	return nil
}

// RegisterOrWarn registers and only logs failures.
func (s *DiscoveryService) RegisterOrWarn(ctx context.Context, offer model.ResourceOffer) {
	if s.baseURL == "" {
		return
	}
	if err := s.Register(ctx, offer); err != nil {
		log.Printf("WARN: Could not register with discovery service at %s: %v", s.baseURL, err)
		return
	}
	log.Printf("INFO: Registered resource %q with discovery service at %s", offer.Name, s.baseURL)
}
