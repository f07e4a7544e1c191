package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/capecontrol/backend/internal/domain"
	"github.com/capecontrol/backend/internal/repository"
	"github.com/capecontrol/backend/internal/service"
)

func agentsCommand() *cli.Command {
	return &cli.Command{
		Name:  "agents",
		Usage: "Manage the agent catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List agents",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Usage: "Include inactive agents"},
				},
				Action: runAgentsList,
			},
			{
				Name:  "create",
				Usage: "Add an agent",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Unique agent name", Required: true},
					&cli.StringFlag{Name: "description", Usage: "What the agent does", Required: true},
					&cli.BoolFlag{Name: "inactive", Usage: "Create the agent disabled"},
				},
				Action: runAgentsCreate,
			},
			{
				Name:      "update",
				Usage:     "Edit an agent's name or description",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "New name"},
					&cli.StringFlag{Name: "description", Usage: "New description"},
				},
				Action: runAgentsUpdate,
			},
			{
				Name:      "activate",
				Usage:     "Make an agent visible through the API",
				ArgsUsage: "<id>",
				Action:    setAgentActive(true),
			},
			{
				Name:      "deactivate",
				Usage:     "Hide an agent from the API",
				ArgsUsage: "<id>",
				Action:    setAgentActive(false),
			},
		},
	}
}

// withAgentService opens the database and runs fn against an AgentService.
func withAgentService(c *cli.Context, fn func(*service.AgentService) error) error {
	cfg := loadConfig(c)

	db, _, err := openDatabase(c.Context, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	agents := service.NewAgentService(repository.NewAgentRepository(db.Pool()), service.NewSimulator(nil))
	return fn(agents)
}

func agentIDArg(c *cli.Context) (int64, error) {
	if c.NArg() != 1 {
		return 0, fmt.Errorf("expected exactly one agent id, got %d arguments", c.NArg())
	}

	agentID, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || agentID <= 0 {
		return 0, fmt.Errorf("invalid agent id %q", c.Args().First())
	}
	return agentID, nil
}

func runAgentsList(c *cli.Context) error {
	return withAgentService(c, func(agents *service.AgentService) error {
		var (
			list []*domain.Agent
			err  error
		)
		if c.Bool("all") {
			list, err = agents.ListAll(c.Context)
		} else {
			list, err = agents.ListActive(c.Context)
		}
		if err != nil {
			return fmt.Errorf("list agents: %w", err)
		}

		return printAgents(c.App.Writer, list...)
	})
}

func runAgentsCreate(c *cli.Context) error {
	return withAgentService(c, func(agents *service.AgentService) error {
		agent, err := agents.Create(c.Context, service.CreateAgentParams{
			Name:        c.String("name"),
			Description: c.String("description"),
			IsActive:    !c.Bool("inactive"),
		})
		if err != nil {
			return fmt.Errorf("create agent: %w", err)
		}

		return printAgents(c.App.Writer, agent)
	})
}

func runAgentsUpdate(c *cli.Context) error {
	agentID, err := agentIDArg(c)
	if err != nil {
		return err
	}

	var update domain.AgentUpdate
	if c.IsSet("name") {
		name := c.String("name")
		update.Name = &name
	}
	if c.IsSet("description") {
		description := c.String("description")
		update.Description = &description
	}
	if update.IsEmpty() {
		return fmt.Errorf("nothing to update: pass --name and/or --description")
	}

	return withAgentService(c, func(agents *service.AgentService) error {
		agent, err := agents.Update(c.Context, agentID, update)
		if err != nil {
			return err
		}

		return printAgents(c.App.Writer, agent)
	})
}

func setAgentActive(active bool) cli.ActionFunc {
	return func(c *cli.Context) error {
		agentID, err := agentIDArg(c)
		if err != nil {
			return err
		}

		return withAgentService(c, func(agents *service.AgentService) error {
			agent, err := agents.SetActive(c.Context, agentID, active)
			if err != nil {
				return err
			}

			return printAgents(c.App.Writer, agent)
		})
	}
}

func printAgents(w io.Writer, agents ...*domain.Agent) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tUPDATED\tDESCRIPTION")
	for _, agent := range agents {
		fmt.Fprintf(tw, "%d\t%s\t%t\t%s\t%s\n",
			agent.ID,
			agent.Name,
			agent.IsActive,
			agent.UpdatedAt.Format("2006-01-02 15:04:05"),
			agent.Description,
		)
	}
	return tw.Flush()
}
