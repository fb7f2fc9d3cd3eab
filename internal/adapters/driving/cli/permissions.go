package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/northgate-labs/docsync/internal/core/domain"
)

// aclService resolves the flattened group identifiers allowed to read
// an item.
type aclService interface {
	AllowedGroups(ctx context.Context, ref domain.ItemRef) []string
}

var aclResolver aclService

var permissionsCmd = &cobra.Command{
	Use:   "permissions",
	Short: "Inspect resolved item permissions",
}

var permissionsValidateCmd = &cobra.Command{
	Use:   "validate [site-id] [drive-id] [item-id]",
	Short: "Print the group identifiers allowed to read an item",
	Long: `Resolves an item's permission grants to the flattened set of group
identifiers that would be written to the index. An empty result means
the document is hidden from search.`,
	Args: cobra.ExactArgs(3),
	RunE: runPermissionsValidate,
}

func init() {
	permissionsCmd.AddCommand(permissionsValidateCmd)
	rootCmd.AddCommand(permissionsCmd)
}

func runPermissionsValidate(cmd *cobra.Command, args []string) error {
	if aclResolver == nil {
		return errors.New("permission service not configured")
	}

	ref := domain.ItemRef{SiteID: args[0], DriveID: args[1], ItemID: args[2]}
	ctx := context.Background()

	groups := aclResolver.AllowedGroups(ctx, ref)
	if len(groups) == 0 {
		cmd.Printf("No groups resolved for %s; the document is hidden from search.\n", ref.DocumentID())
		return nil
	}

	cmd.Printf("Allowed groups for %s:\n\n", ref.DocumentID())
	for _, group := range groups {
		cmd.Printf("  %s\n", group)
	}
	cmd.Printf("\nTotal: %d groups\n", len(groups))
	return nil
}
