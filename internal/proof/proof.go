// Copyright (c) MetaMesh Labs
// SPDX-License-Identifier: Apache-2.0 (see LICENSE)

// This package evaluates the demo eligibility predicates and commits to
// their inputs with a hash. The commitment is tamper evidence over declared
// inputs, not a zero-knowledge proof: anyone holding the inputs can
// recompute the hash.
package proof

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownContract = errors.New("unknown contract")
	ErrMissingInput    = errors.New("missing input")
)

const (
	ContractQualify       = "qualifyProof"
	ContractPaymentAmount = "paymentAmountProof"
)

// Inputs are the named values a predicate is evaluated over.
type Inputs map[string]int64

// Artifact is the result of one evaluation. Immutable once created.
type Artifact struct {
	ID           string    `json:"id"`
	ProofHash    string    `json:"proofHash"`
	ContractName string    `json:"contractName"`
	Inputs       Inputs    `json:"inputs"`
	Output       bool      `json:"output"`
	Timestamp    time.Time `json:"timestamp"`
}

type Predicate struct {
	Required []string
	Eval     func(Inputs) bool
}

// Registry maps contract names to predicates. The two demo contracts are
// registered by default; Register extends the set.
type Registry struct {
	predicates map[string]Predicate
}

func NewRegistry() *Registry {
	r := &Registry{predicates: map[string]Predicate{}}
	r.Register(ContractQualify, Predicate{
		Required: []string{"score", "threshold"},
		Eval: func(in Inputs) bool {
			return in["score"] >= in["threshold"]
		},
	})
	r.Register(ContractPaymentAmount, Predicate{
		Required: []string{"amount", "minimum"},
		Eval: func(in Inputs) bool {
			return in["amount"] >= in["minimum"]
		},
	})
	return r
}

func (r *Registry) Register(contractName string, predicate Predicate) {
	r.predicates[contractName] = predicate
}

// Evaluate runs the named predicate over the inputs and returns the
// artifact carrying the input commitment. Absent required inputs fail with
// ErrMissingInput instead of defaulting to zero.
func (r *Registry) Evaluate(contractName string, inputs Inputs) (*Artifact, error) {
	predicate, ok := r.predicates[contractName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, contractName)
	}
	for _, field := range predicate.Required {
		if _, ok := inputs[field]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, field)
		}
	}
	return &Artifact{
		ID:           "proof-" + uuid.NewString(),
		ProofHash:    Hash(inputs, contractName),
		ContractName: contractName,
		Inputs:       inputs,
		Output:       predicate.Eval(inputs),
		Timestamp:    time.Now().UTC(),
	}, nil
}

// Verify recomputes the commitment from the claimed inputs and compares.
func (r *Registry) Verify(inputs Inputs, contractName string, proofHash string) bool {
	return Hash(inputs, contractName) == proofHash
}

// Hash is a pure function of (inputs, contractName): sha256 over the
// canonical JSON serialization. encoding/json writes map keys in sorted
// order, which keeps the serialization stable.
func Hash(inputs Inputs, contractName string) string {
	canonical, err := json.Marshal(struct {
		ContractName string `json:"contractName"`
		Inputs       Inputs `json:"inputs"`
	}{contractName, inputs})
	if err != nil {
		// Inputs is a map of scalars, marshaling cannot fail.
		panic(err)
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:])
}
