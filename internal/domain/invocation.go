package domain

// InvocationStatusSuccess is the only status a completed invocation reports.
const InvocationStatusSuccess = "success"

// Invocation is the outcome of simulating an agent run against user input.
type Invocation struct {
	AgentID    int64
	AgentName  string
	UserInput  string
	AIResponse string
	Status     string
}
