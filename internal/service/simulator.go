package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	mathrand "math/rand/v2"

	"github.com/google/uuid"

	"github.com/capecontrol/backend/internal/domain"
)

// RandomSource supplies the randomness behind an invocation.
// Implementations must be safe for concurrent use.
type RandomSource interface {
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
	// Read fills p with random bytes.
	Read(p []byte) (int, error)
}

type systemSource struct{}

// SystemRandom draws choices from math/rand/v2 and bytes from crypto/rand.
func SystemRandom() RandomSource {
	return systemSource{}
}

func (systemSource) Intn(n int) int {
	return mathrand.IntN(n)
}

func (systemSource) Read(p []byte) (int, error) {
	return rand.Read(p)
}

// responseTemplates take the agent name as %[1]s and the user input as %[2]s.
var responseTemplates = [...]string{
	"Thanks for calling the '%[1]s' agent. Your request '%[2]s' has been processed. Simulated output: 'Cross-referencing the available signals points to three strategic levers worth prioritising this quarter.'",
	"'%[1]s' is online and received: '%[2]s'. Simulated output: 'Projected efficiency gains of 20%% are achievable by automating the highest-volume manual steps.'",
	"Request to '%[1]s': '%[2]s'. Simulated output: 'After a full pass over the inputs, the recommendation is to rebalance the workflow toward higher-throughput stages.'",
	"Running '%[1]s' on '%[2]s'. Simulated output: 'A draft has been produced that addresses the core objectives with a focus on engagement and conversion.'",
	"The '%[1]s' agent has finished working on '%[2]s'. Summary of findings: 'Sustained advantage depends on agile resource allocation and a steady cadence of experimentation.'",
}

// Simulator fabricates agent responses without calling any model.
type Simulator struct {
	random RandomSource
}

// NewSimulator creates a Simulator. A nil source falls back to SystemRandom.
func NewSimulator(random RandomSource) *Simulator {
	if random == nil {
		random = SystemRandom()
	}
	return &Simulator{random: random}
}

// Invoke fills a randomly chosen template with the agent name and input and
// appends a random 32-hex-character identifier. It performs no I/O and never fails.
func (s *Simulator) Invoke(agent *domain.Agent, userInput string) *domain.Invocation {
	template := responseTemplates[s.random.Intn(len(responseTemplates))]

	return &domain.Invocation{
		AgentID:    agent.ID,
		AgentName:  agent.Name,
		UserInput:  userInput,
		AIResponse: fmt.Sprintf(template, agent.Name, userInput) + " (Simulated ID: " + s.simulatedID() + ")",
		Status:     domain.InvocationStatusSuccess,
	}
}

// simulatedIDBytes is the size of the simulated ID: 128 random bits, 32 hex characters.
const simulatedIDBytes = 16

// simulatedID renders 16 random bytes as 32 lowercase hex characters.
func (s *Simulator) simulatedID() string {
	b := make([]byte, simulatedIDBytes)
	if _, err := io.ReadFull(s.random, b); err != nil {
		// Only a broken source gets here; fall back to the process-wide generator.
		id := uuid.New()
		copy(b, id[:])
	}
	return hex.EncodeToString(b)
}
