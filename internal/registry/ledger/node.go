package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docseal/internal/registry/models"
	"docseal/internal/sentinel"
)

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// NodeConfig carries the ledger node connection settings. It is passed
// explicitly; the client keeps no ambient credentials.
type NodeConfig struct {
	Endpoint        string
	SignerKey       string
	ContractAddress string
	Timeout         time.Duration
	HTTPClient      HTTPDoer
}

// Node talks to an external ledger gateway node over HTTP. Each registry
// entry lives under the configured contract address.
type Node struct {
	endpoint  string
	signerKey string
	contract  string
	client    HTTPDoer
}

// NewNode creates a ledger client for the given node.
func NewNode(cfg NodeConfig) *Node {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Node{
		endpoint:  cfg.Endpoint,
		signerKey: cfg.SignerKey,
		contract:  cfg.ContractAddress,
		client:    client,
	}
}

type nodeWriteRequest struct {
	Commitment string `json:"commitment"`
	Hash       string `json:"hash"`
}

type nodeWriteResponse struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

type nodeEntryResponse struct {
	CurrentHash string `json:"currentHash"`
}

func (n *Node) Append(ctx context.Context, commitment models.Commitment, hash models.Hash) (Receipt, error) {
	body := nodeWriteRequest{Commitment: commitment.String(), Hash: hash.String()}
	url := fmt.Sprintf("%s/contracts/%s/entries", n.endpoint, n.contract)
	return n.write(ctx, http.MethodPost, url, body)
}

func (n *Node) Replace(ctx context.Context, commitment models.Commitment, newHash models.Hash) (Receipt, error) {
	body := nodeWriteRequest{Commitment: commitment.String(), Hash: newHash.String()}
	url := fmt.Sprintf("%s/contracts/%s/entries/%s", n.endpoint, n.contract, commitment)
	return n.write(ctx, http.MethodPut, url, body)
}

func (n *Node) Current(ctx context.Context, commitment models.Commitment) (models.Hash, error) {
	url := fmt.Sprintf("%s/contracts/%s/entries/%s", n.endpoint, n.contract, commitment)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	respBody, status, err := n.do(req)
	if err != nil {
		return "", err
	}

	switch status {
	case http.StatusOK:
		var entry nodeEntryResponse
		if err := json.Unmarshal(respBody, &entry); err != nil {
			return "", fmt.Errorf("parse node response: %w", err)
		}
		current, err := models.ParseHash(entry.CurrentHash)
		if err != nil {
			return "", fmt.Errorf("node returned malformed hash: %w", err)
		}
		return current, nil
	case http.StatusNotFound:
		return "", fmt.Errorf("entry %s: %w", commitment, sentinel.ErrNotFound)
	default:
		return "", n.classify(status, respBody)
	}
}

func (n *Node) write(ctx context.Context, method, url string, body nodeWriteRequest) (Receipt, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return Receipt{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
	if err != nil {
		return Receipt{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	respBody, status, err := n.do(req)
	if err != nil {
		return Receipt{}, err
	}

	switch status {
	case http.StatusOK, http.StatusCreated:
		var receipt nodeWriteResponse
		if err := json.Unmarshal(respBody, &receipt); err != nil {
			return Receipt{}, fmt.Errorf("parse node response: %w", err)
		}
		if receipt.TxHash == "" {
			// "Transaction not confirmed" is failure, not success.
			return Receipt{}, fmt.Errorf("node returned no transaction reference: %w", sentinel.ErrReverted)
		}
		return Receipt{TxHash: receipt.TxHash, BlockNumber: receipt.BlockNumber}, nil
	case http.StatusConflict:
		return Receipt{}, fmt.Errorf("entry exists: %w", sentinel.ErrDuplicate)
	case http.StatusNotFound:
		return Receipt{}, fmt.Errorf("no entry to update: %w", sentinel.ErrNotFound)
	default:
		return Receipt{}, n.classify(status, respBody)
	}
}

func (n *Node) do(req *http.Request) ([]byte, int, error) {
	if n.signerKey != "" {
		req.Header.Set("X-Signer-Key", n.signerKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		if req.Context().Err() == context.DeadlineExceeded {
			return nil, 0, fmt.Errorf("ledger node timeout: %w", sentinel.ErrUnavailable)
		}
		return nil, 0, fmt.Errorf("ledger node request failed: %w", sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read node response: %w", sentinel.ErrUnavailable)
	}
	return body, resp.StatusCode, nil
}

// classify maps unexpected node status codes onto sentinel errors.
func (n *Node) classify(status int, body []byte) error {
	switch {
	case status == http.StatusUnprocessableEntity:
		return fmt.Errorf("node rejected transaction: %s: %w", bytes.TrimSpace(body), sentinel.ErrReverted)
	case status >= 500:
		return fmt.Errorf("node unavailable (%d): %w", status, sentinel.ErrUnavailable)
	default:
		return fmt.Errorf("unexpected node status %d: %s: %w", status, bytes.TrimSpace(body), sentinel.ErrReverted)
	}
}
