package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/liyecom/adpilot/internal/playbook"
)

var (
	playbooksDir   string
	playbooksPrint bool
)

var playbooksCmd = &cobra.Command{
	Use:   "playbooks",
	Short: "Inspect and validate playbook documents",
}

var playbooksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the loaded playbooks",
	Long: `Load every playbook document in the directory, applying the same
validation and rule-version supersession as the decision engine, and
print one line per effective playbook.`,
	RunE: runPlaybooksList,
}

var playbooksValidateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate playbook documents",
	Long: `Validate the given playbook files, or the whole playbook directory
when no files are named. Exits non-zero on the first invalid document.`,
	RunE: runPlaybooksValidate,
}

func init() {
	playbooksCmd.PersistentFlags().StringVar(&playbooksDir, "playbook-dir", "playbooks", "Directory containing playbook YAML documents")
	playbooksValidateCmd.Flags().BoolVar(&playbooksPrint, "print", false, "Print each validated document as canonical YAML")
	playbooksCmd.AddCommand(playbooksListCmd)
	playbooksCmd.AddCommand(playbooksValidateCmd)
}

func runPlaybooksList(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}

	store, err := playbook.LoadDir(playbooksDir)
	if err != nil {
		return err
	}

	for _, id := range store.SupportedObservations() {
		pb, _ := store.Get(id)
		fmt.Printf("%-24s %-28s severity=%-8s causes=%d actions=%d profiles=%d\n",
			id, pb.RuleVersion, pb.Severity, len(pb.Causes), len(pb.Actions), len(pb.Profiles))
	}
	return nil
}

func runPlaybooksValidate(cmd *cobra.Command, args []string) error {
	if err := setupLog(logLevelFlags); err != nil {
		return err
	}

	if len(args) == 0 {
		store, err := playbook.LoadDir(playbooksDir)
		if err != nil {
			return err
		}
		fmt.Printf("ok: %d playbooks valid in %s\n", store.Len(), playbooksDir)
		return nil
	}

	for _, path := range args {
		pb, err := playbook.LoadFile(path)
		if err != nil {
			return err
		}
		fmt.Printf("ok: %s (%s)\n", path, pb.RuleVersion)
		if playbooksPrint {
			data, err := yaml.Marshal(pb)
			if err != nil {
				return fmt.Errorf("failed to marshal %q: %w", path, err)
			}
			if _, err := os.Stdout.Write(data); err != nil {
				return err
			}
		}
	}
	return nil
}
