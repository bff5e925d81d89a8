package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/gomanifold/manifold/internal/cli/config"
	"github.com/gomanifold/manifold/internal/cli/ui"
)

// DefaultRepository hosts the API documentation and schema tree.
const DefaultRepository = "https://github.com/manifoldmarkets/manifold.git"

// initAnswers are the values `manifold init` asks for.
type initAnswers struct {
	ProjectName string
	Remote      bool
	Repository  string
	Ref         string
	Docs        string
	Schemas     string
	Generator   string
	Cache       string
	RedisAddr   string
}

func defaultInitAnswers() initAnswers {
	name := "manifold"
	if wd, err := os.Getwd(); err == nil {
		name = filepath.Base(wd)
	}
	return initAnswers{
		ProjectName: name,
		Ref:         "main",
		Docs:        "api.md",
		Schemas:     "schema",
		Generator:   "go-jsonschema",
		Cache:       config.CacheBackendFile,
		RedisAddr:   "localhost:6379",
	}
}

// overrides maps the answers onto config keys.
func (a initAnswers) overrides() map[string]any {
	values := map[string]any{
		"project_name":        a.ProjectName,
		"sources.docs":        a.Docs,
		"sources.schemas":     a.Schemas,
		"codegen.command":     a.Generator,
		"build.cache.backend": a.Cache,
	}
	if a.Remote {
		values["sources.repository"] = a.Repository
		values["sources.ref"] = a.Ref
	}
	if a.Cache == config.CacheBackendRedis {
		values["build.cache.redis.addr"] = a.RedisAddr
	}
	return values
}

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	var (
		yes   bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a manifold.yml in the current directory",
		Long: `Create a manifold.yml interactively. Every option is written out with its
default so the file doubles as a reference.`,
		Example: `  manifold init
  manifold init --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			noColor := globals.noColor
			path := config.FileName + ".yml"

			if config.InProject() && !force {
				fmt.Fprint(cmd.ErrOrStderr(), ui.Warning("A manifold config already exists here",
					[]string{"manifold init --force"}, noColor))
				return errReported
			}

			answers := defaultInitAnswers()
			if !yes {
				if err := askInit(&answers); err != nil {
					return err
				}
			}

			if err := config.Init(path, answers.overrides(), force); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			ui.WriteSuccess(out, fmt.Sprintf("Wrote %s", path), noColor)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			if answers.Remote {
				fmt.Fprintln(out, "  manifold fetch")
			}
			fmt.Fprintln(out, "  manifold build")
			fmt.Fprintln(out, "  manifold endpoints")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept all defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing manifold.yml")

	return cmd
}

func askInit(a *initAnswers) error {
	if err := survey.AskOne(&survey.Input{
		Message: "Project name:",
		Default: a.ProjectName,
	}, &a.ProjectName, survey.WithValidator(survey.Required)); err != nil {
		return err
	}

	if err := survey.AskOne(&survey.Confirm{
		Message: "Fetch the documentation from a git repository?",
		Default: true,
	}, &a.Remote); err != nil {
		return err
	}
	if a.Remote {
		qs := []*survey.Question{
			{
				Name:     "repository",
				Prompt:   &survey.Input{Message: "Repository URL:", Default: DefaultRepository},
				Validate: survey.Required,
			},
			{
				Name:   "ref",
				Prompt: &survey.Input{Message: "Branch or tag:", Default: a.Ref},
			},
		}
		if err := survey.Ask(qs, a); err != nil {
			return err
		}
	}

	qs := []*survey.Question{
		{
			Name:     "docs",
			Prompt:   &survey.Input{Message: "Documentation file:", Default: a.Docs},
			Validate: survey.Required,
		},
		{
			Name:     "schemas",
			Prompt:   &survey.Input{Message: "Schema directory:", Default: a.Schemas},
			Validate: survey.Required,
		},
		{
			Name:     "generator",
			Prompt:   &survey.Input{Message: "Model generator command:", Default: a.Generator},
			Validate: survey.Required,
		},
		{
			Name: "cache",
			Prompt: &survey.Select{
				Message: "Build cache:",
				Options: []string{config.CacheBackendFile, config.CacheBackendRedis},
				Default: a.Cache,
			},
		},
	}
	if err := survey.Ask(qs, a); err != nil {
		return err
	}

	if a.Cache == config.CacheBackendRedis {
		return survey.AskOne(&survey.Input{
			Message: "Redis address:",
			Default: a.RedisAddr,
		}, &a.RedisAddr)
	}
	return nil
}
