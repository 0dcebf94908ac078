// Mock ledger gateway node for local development and e2e runs. It speaks
// the same HTTP surface the node ledger client expects and keeps entries in
// memory. Magic commitment suffixes allow tests to force failure modes:
//
//	...dead  → 503 on every call (node down)
//	...slow  → extra latency before answering
//	...rvrt  → 422 on writes (transaction reverted)
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort      = "8545"
	defaultSignerKey = "dev-signer-key"
	defaultLatencyMs = "50"
)

type writeRequest struct {
	Commitment string `json:"commitment"`
	Hash       string `json:"hash"`
}

type writeResponse struct {
	TxHash      string `json:"txHash"`
	BlockNumber uint64 `json:"blockNumber"`
}

type entryResponse struct {
	CurrentHash string `json:"currentHash"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var (
	signerKey = getEnv("SIGNER_KEY", defaultSignerKey)
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

	mu      sync.Mutex
	entries = map[string]string{} // commitment -> current hash
	block   uint64
)

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/health", handleHealth)
	http.HandleFunc("/contracts/", handleContracts)

	log.Printf("mock ledger node starting on port %s", port)
	log.Printf("signer key: %s", signerKey)
	log.Printf("simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "ledger-node",
	})
}

// handleContracts routes /contracts/{contract}/entries[/{commitment}].
func handleContracts(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "contracts" || parts[2] != "entries" {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "unknown path"})
		return
	}

	switch {
	case r.Method == http.MethodPost && len(parts) == 3:
		handleAppend(w, r)
	case r.Method == http.MethodPut && len(parts) == 4:
		handleReplace(w, r, parts[3])
	case r.Method == http.MethodGet && len(parts) == 4:
		handleCurrent(w, parts[3])
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}
}

func handleAppend(w http.ResponseWriter, r *http.Request) {
	if !authorized(w, r) {
		return
	}
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if simulated(w, req.Commitment, true) {
		return
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := entries[req.Commitment]; exists {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "entry exists"})
		return
	}
	entries[req.Commitment] = req.Hash
	block++
	writeJSON(w, http.StatusCreated, writeResponse{TxHash: txHash(req.Commitment, req.Hash, block), BlockNumber: block})
}

func handleReplace(w http.ResponseWriter, r *http.Request, commitment string) {
	if !authorized(w, r) {
		return
	}
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid body"})
		return
	}
	if simulated(w, commitment, true) {
		return
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := entries[commitment]; !exists {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no entry"})
		return
	}
	entries[commitment] = req.Hash
	block++
	writeJSON(w, http.StatusOK, writeResponse{TxHash: txHash(commitment, req.Hash, block), BlockNumber: block})
}

func handleCurrent(w http.ResponseWriter, commitment string) {
	if simulated(w, commitment, false) {
		return
	}

	mu.Lock()
	current, exists := entries[commitment]
	mu.Unlock()
	if !exists {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no entry"})
		return
	}
	writeJSON(w, http.StatusOK, entryResponse{CurrentHash: current})
}

// simulated applies the magic-suffix failure modes. Returns true when the
// response has already been written.
func simulated(w http.ResponseWriter, commitment string, isWrite bool) bool {
	switch {
	case strings.HasSuffix(commitment, "dead"):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "node down"})
		return true
	case strings.HasSuffix(commitment, "slow"):
		time.Sleep(2 * time.Second)
		return false
	case isWrite && strings.HasSuffix(commitment, "rvrt"):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "transaction reverted"})
		return true
	}
	return false
}

func authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("X-Signer-Key") != signerKey {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "bad signer key"})
		return false
	}
	return true
}

func txHash(commitment, hash string, block uint64) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d", commitment, hash, block))
	return "0x" + hex.EncodeToString(sum[:])
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v := getEnv(key, fallback)
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return n
}
