package admin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/lumenai/skillforge/internal/config"
	"github.com/lumenai/skillforge/internal/database"
	"github.com/lumenai/skillforge/internal/repository"
	"github.com/lumenai/skillforge/internal/service"
)

func SkillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skill",
		Short: "Manage skills",
		Long:  "Create, list and validate skills",
	}

	cmd.AddCommand(SkillCreateCmd())
	cmd.AddCommand(SkillListCmd())
	cmd.AddCommand(SkillValidateCmd())

	return cmd
}

// addOutputFlag registers the shared output-format flag on a command's
// flag set.
func addOutputFlag(fs *pflag.FlagSet) {
	fs.StringP("output", "o", "text", "Output format (text or json)")
}

func SkillCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <workspace-id> <name>",
		Short: "Create a new skill",
		Long:  "Create a new skill with its default retrieval config",
		Args:  cobra.ExactArgs(2),
		RunE:  runSkillCreate,
	}

	addOutputFlag(cmd.Flags())
	cmd.Flags().String("description", "", "Skill description")

	return cmd
}

func runSkillCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	workspaceID, name := args[0], args[1]
	outputFormat, _ := cmd.Flags().GetString("output")
	description, _ := cmd.Flags().GetString("description")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	skillRepo := repository.NewSkillRepository(pool)
	txRunner := repository.NewTxRunner(pool)
	skillSvc := service.NewSkillService(skillRepo, txRunner)

	skill, err := skillSvc.Create(ctx, service.CreateSkillInput{
		WorkspaceID: workspaceID,
		Name:        name,
		Description: description,
		CreatedBy:   "cli",
	})
	if err != nil {
		return fmt.Errorf("failed to create skill: %w", err)
	}

	if outputFormat == "json" {
		data := map[string]interface{}{
			"id":           skill.ID,
			"workspace_id": skill.WorkspaceID,
			"name":         skill.Name,
			"slug":         skill.Slug,
			"status":       skill.Status,
			"created_at":   skill.CreatedAt,
		}
		jsonBytes, _ := json.MarshalIndent(data, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		fmt.Printf("Skill created: %s (%s)\n", skill.Name, skill.ID)
	}

	return nil
}

func SkillListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <workspace-id>",
		Short: "List skills in a workspace",
		Args:  cobra.ExactArgs(1),
		RunE:  runSkillList,
	}

	addOutputFlag(cmd.Flags())

	return cmd
}

func runSkillList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	workspaceID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	skillRepo := repository.NewSkillRepository(pool)
	skills, err := skillRepo.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return fmt.Errorf("failed to list skills: %w", err)
	}

	if outputFormat == "json" {
		items := make([]map[string]interface{}, 0, len(skills))
		for _, s := range skills {
			items = append(items, map[string]interface{}{
				"id":     s.ID,
				"name":   s.Name,
				"slug":   s.Slug,
				"status": s.Status,
				"usage":  s.Usage,
			})
		}
		jsonBytes, _ := json.MarshalIndent(items, "", "  ")
		fmt.Println(string(jsonBytes))
	} else {
		for _, s := range skills {
			fmt.Printf("%s  %s  [%s]\n", s.ID, s.Name, s.Status)
		}
		fmt.Printf("%d skill(s)\n", len(skills))
	}

	return nil
}

func SkillValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <skill-id>",
		Short: "Check a skill's readiness",
		Long:  "Run the readiness checks and report every failing one",
		Args:  cobra.ExactArgs(1),
		RunE:  runSkillValidate,
	}

	addOutputFlag(cmd.Flags())

	return cmd
}

func runSkillValidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	skillID := args[0]
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	readinessSvc := service.NewReadinessService(
		repository.NewSkillRepository(pool),
		repository.NewKnowledgeSourceRepository(pool),
		repository.NewRetrievalConfigRepository(pool),
	)

	result, err := readinessSvc.Validate(ctx, skillID)
	if err != nil {
		return fmt.Errorf("failed to validate skill: %w", err)
	}

	if outputFormat == "json" {
		jsonBytes, _ := json.MarshalIndent(map[string]interface{}{
			"skill_id": result.SkillID,
			"ready":    result.Ready,
			"errors":   result.Errors,
		}, "", "  ")
		fmt.Println(string(jsonBytes))
	} else if result.Ready {
		fmt.Println("Skill is ready")
	} else {
		fmt.Println("Skill is not ready:")
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	return nil
}

func getDBPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
}
