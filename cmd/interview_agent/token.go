package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/interview-engine/internal/config"
	"github.com/jonathan/interview-engine/internal/server"
	"github.com/jonathan/interview-engine/internal/server/middleware"
	"github.com/spf13/cobra"
)

var (
	tokenRole      string
	tokenPrincipal string
	tokenSession   string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development bearer token",
	Long:  "Signs a bearer token with JWT_SECRET. Candidate tokens must name the session they may use.",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", middleware.RoleInterviewer, "Role: interviewer, candidate or service")
	tokenCmd.Flags().StringVar(&tokenPrincipal, "principal", "", "Principal UUID (random when empty)")
	tokenCmd.Flags().StringVar(&tokenSession, "session", "", "Session UUID the token is scoped to")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return err
	}
	if err := jwtCfg.Validate(); err != nil {
		return err
	}

	principal := uuid.New()
	if tokenPrincipal != "" {
		if principal, err = uuid.Parse(tokenPrincipal); err != nil {
			return fmt.Errorf("invalid --principal: %w", err)
		}
	}
	sessionID := uuid.Nil
	if tokenSession != "" {
		if sessionID, err = uuid.Parse(tokenSession); err != nil {
			return fmt.Errorf("invalid --session: %w", err)
		}
	}

	token, err := server.NewJWTService(jwtCfg).GenerateToken(principal, tokenRole, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
