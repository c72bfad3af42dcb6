package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/internal/auth"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// tokenCmd 签发访问令牌，用于本地调试
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an access token signed with the configured secret",
	Run: func(cmd *cobra.Command, args []string) {
		userID, _ := cmd.Flags().GetString("user-id")
		username, _ := cmd.Flags().GetString("username")
		role, _ := cmd.Flags().GetString("role")
		ttl, _ := cmd.Flags().GetDuration("ttl")
		if userID == "" {
			userID = uuid.NewString()
		}

		token, expires, err := issueToken(config.Get(), auth.Identity{UserID: userID, Username: username, Role: role}, ttl)
		if err != nil {
			utils.Component("token").Fatal("failed to issue token", zap.Error(err))
		}
		fmt.Println(token)
		utils.Component("token").Info("token issued",
			zap.String("user_id", userID),
			zap.String("role", role),
			zap.Time("expires_at", expires))
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().String("user-id", "", "Subject of the token (random UUID if empty)")
	tokenCmd.Flags().String("username", "dev", "Username claim")
	tokenCmd.Flags().String("role", auth.RoleUser, "Role claim (user or admin)")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (defaults to jwt_ttl)")
}

func issueToken(cfg *config.Config, id auth.Identity, ttl time.Duration) (string, time.Time, error) {
	if cfg.JWTSecretGenerated {
		return "", time.Time{}, errors.New("jwt_secret is not configured")
	}
	if ttl <= 0 {
		ttl = cfg.JWTTTL
	}
	svc, err := auth.NewJWTService(auth.TokenConfig{
		Secret:    []byte(cfg.JWTSecret),
		Issuer:    cfg.JWTIssuer,
		ExpiresIn: ttl,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return svc.GenerateAccessToken(id)
}
