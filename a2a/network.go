package a2a

import (
	"context"
	"fmt"
	"sync"

	"github.com/smallnest/multiagent/log"
	"golang.org/x/sync/errgroup"
)

// broadcastConcurrency bounds concurrent sends in BroadcastMessage.
const broadcastConcurrency = 8

// Network is a registry of remote agents that routes tasks by name or skill.
type Network struct {
	client *Client

	mu     sync.RWMutex
	agents map[string]*AgentCard
	order  []string
}

// NewNetwork creates an empty network. A nil client uses NewClient().
func NewNetwork(client *Client) *Network {
	if client == nil {
		client = NewClient()
	}
	return &Network{
		client: client,
		agents: make(map[string]*AgentCard),
	}
}

// Client returns the client used to reach agents.
func (n *Network) Client() *Client {
	return n.client
}

// Register discovers the card at agentURL and adds the agent.
func (n *Network) Register(ctx context.Context, agentURL string) (*AgentCard, error) {
	card, err := n.client.GetAgentCard(ctx, agentURL)
	if err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", agentURL, err)
	}
	if card.URL == "" {
		card.URL = agentURL
	}

	n.mu.Lock()
	if _, ok := n.agents[card.Name]; !ok {
		n.order = append(n.order, card.Name)
	}
	n.agents[card.Name] = card
	n.mu.Unlock()

	log.Info("Registered agent: %s (%s)", card.Name, agentURL)
	return card, nil
}

// Agents returns the registered cards in registration order.
func (n *Network) Agents() []*AgentCard {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]*AgentCard, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.agents[name])
	}
	return out
}

// Agent returns the card registered under name.
func (n *Network) Agent(name string) (*AgentCard, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	card, ok := n.agents[name]
	return card, ok
}

// FindAgentWithSkill returns the first registered agent with skill.
func (n *Network) FindAgentWithSkill(skill string) (*AgentCard, bool) {
	for _, card := range n.Agents() {
		if card.HasSkill(skill) {
			return card, true
		}
	}
	return nil, false
}

// SubmitTaskTo submits a task to the named agent. When wait is set it
// blocks until the task finishes.
func (n *Network) SubmitTaskTo(ctx context.Context, agentName, description string, wait bool) (*Task, error) {
	card, ok := n.Agent(agentName)
	if !ok {
		return nil, fmt.Errorf("agent not found: %s", agentName)
	}

	task, err := n.client.SubmitTask(ctx, card.URL, description, nil)
	if err != nil {
		return nil, err
	}
	if !wait {
		return task, nil
	}
	return n.client.WaitForTask(ctx, card.URL, task.ID, 0, 0)
}

// SubmitTask submits to the first agent with skill, or to the first
// registered agent when skill is empty.
func (n *Network) SubmitTask(ctx context.Context, description, skill string, wait bool) (*Task, error) {
	var card *AgentCard
	if skill != "" {
		c, ok := n.FindAgentWithSkill(skill)
		if !ok {
			return nil, fmt.Errorf("no agent found with skill: %s", skill)
		}
		card = c
	} else {
		agents := n.Agents()
		if len(agents) == 0 {
			return nil, fmt.Errorf("no agents registered")
		}
		card = agents[0]
	}
	return n.SubmitTaskTo(ctx, card.Name, description, wait)
}

// BroadcastMessage sends content to every registered agent concurrently.
// Failures are logged; the number of agents reached is returned.
func (n *Network) BroadcastMessage(ctx context.Context, content, sender string) int {
	if sender == "" {
		sender = "network"
	}

	var (
		mu      sync.Mutex
		reached int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(broadcastConcurrency)
	for _, card := range n.Agents() {
		g.Go(func() error {
			if _, err := n.client.SendMessage(gctx, card.URL, content, sender, nil); err != nil {
				log.Error("Failed to send to %s: %v", card.Name, err)
				return nil
			}
			mu.Lock()
			reached++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return reached
}
