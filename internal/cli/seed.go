package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tracker/internal/auth"
	"tracker/internal/models"
	"tracker/internal/service"
	"tracker/internal/storage"
)

// seedFile is the YAML layout accepted by `tracker seed`:
//
//	users:
//	  - name: Ana
//	    email: ana@example.com
//	    password: secret1
//	    projects:
//	      - name: Website
//	        tasks:
//	          - {name: Design, status: done, weight: 2}
//	          - {name: Build}
type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	Name     string        `yaml:"name"`
	Email    string        `yaml:"email"`
	Password string        `yaml:"password"`
	Projects []seedProject `yaml:"projects"`
}

type seedProject struct {
	Name  string     `yaml:"name"`
	Tasks []seedTask `yaml:"tasks"`
}

type seedTask struct {
	Name   string        `yaml:"name"`
	Status models.Status `yaml:"status"`
	Weight int           `yaml:"weight"`
}

// seedSummary counts what a seed run created.
type seedSummary struct {
	Users    int
	Projects int
	Tasks    int
}

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load users, projects and tasks from a YAML file",
	Long: `Seed creates the users, projects and tasks listed in a YAML file. Users
that already exist are reused. Projects are recalculated after every task,
exactly as through the API.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := parseSeed(f)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	rt, err := setup(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	// Registration does not sign sessions, so no secret is needed here.
	accounts, err := auth.New(rt.store, "", 0)
	if err != nil {
		return err
	}

	sum, err := applySeed(cmd.Context(), accounts, rt.store, rt.service(), data, rt.logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "seeded %d users, %d projects, %d tasks\n", sum.Users, sum.Projects, sum.Tasks)
	return nil
}

func parseSeed(r io.Reader) (seedFile, error) {
	var data seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&data); err != nil {
		if errors.Is(err, io.EOF) {
			return seedFile{}, fmt.Errorf("empty seed file")
		}
		return seedFile{}, fmt.Errorf("parse seed: %w", err)
	}
	return data, nil
}

type registrar interface {
	Register(ctx context.Context, name, email, password string) (models.User, error)
}

func applySeed(ctx context.Context, accounts registrar, users storage.Users, svc *service.Service, data seedFile, logger *slog.Logger) (seedSummary, error) {
	var sum seedSummary
	for _, su := range data.Users {
		user, err := users.GetUserByEmail(ctx, models.NormalizeEmail(su.Email))
		switch {
		case errors.Is(err, models.ErrNotFound):
			user, err = accounts.Register(ctx, su.Name, su.Email, su.Password)
			if err != nil {
				return sum, fmt.Errorf("user %s: %w", su.Email, err)
			}
			sum.Users++
		case err != nil:
			return sum, err
		default:
			logger.Info("seed user exists", slog.String("email", user.Email))
		}

		for _, sp := range su.Projects {
			project, err := svc.CreateProject(ctx, user.ID, sp.Name)
			if err != nil {
				return sum, fmt.Errorf("project %q: %w", sp.Name, err)
			}
			sum.Projects++

			for _, st := range sp.Tasks {
				in := service.NewTask{ProjectID: project.ID, Name: st.Name, Status: st.Status, Weight: st.Weight}
				if in.Status == "" {
					in.Status = models.StatusDraft
				}
				if in.Weight == 0 {
					in.Weight = 1
				}
				if _, _, err := svc.CreateTask(ctx, user.ID, in); err != nil {
					return sum, fmt.Errorf("task %q in %q: %w", st.Name, sp.Name, err)
				}
				sum.Tasks++
			}
		}
	}
	return sum, nil
}
