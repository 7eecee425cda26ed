package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/internquest/sessionguard/storage"
	bboltstorage "github.com/internquest/sessionguard/storage/bbolt"
)

// localAuditEntry mirrors the persisted audit record shape without
// importing the api package and its dependency chain.
type localAuditEntry struct {
	ID         string `json:"id"`
	Event      string `json:"event"`
	AccountID  string `json:"account_id,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`
	CreatedAt  string `json:"created_at"`
}

var (
	auditDataDir string
	auditAsJSON  bool
	auditLimit   int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the persisted audit log",
	Long:  `Commands for inspecting the audit log of a stopped server's data directory.`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit entries, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := bboltstorage.NewRepositoryFromFile(auditDataDir+"/sessionguard.db", nil)
		if err != nil {
			return fmt.Errorf("failed to open storage: %w", err)
		}
		defer repo.Close()

		ids, err := repo.List(storage.RecordTypeAudit)
		if err != nil {
			return fmt.Errorf("failed to list audit records: %w", err)
		}

		entries := make([]localAuditEntry, 0, len(ids))
		for _, id := range ids {
			data, err := repo.Get(storage.RecordTypeAudit, id)
			if err != nil {
				continue
			}
			var entry localAuditEntry
			if err := json.Unmarshal(data, &entry); err != nil {
				fmt.Fprintf(os.Stderr, "skipping malformed entry %s: %v\n", id, err)
				continue
			}
			entries = append(entries, entry)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
		if auditLimit > 0 && len(entries) > auditLimit {
			entries = entries[:auditLimit]
		}

		if auditAsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		for _, e := range entries {
			line := fmt.Sprintf("%s  %-20s account=%s", e.CreatedAt, e.Event, e.AccountID)
			if e.SessionID != "" {
				line += " session=" + e.SessionID
			}
			if e.Reason != "" {
				line += " reason=" + e.Reason
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditListCmd.PersistentFlags().StringVar(&auditDataDir, "data-dir", "./data", "Directory holding the server's persistent data")
	auditListCmd.Flags().BoolVar(&auditAsJSON, "json", false, "Emit entries as JSON")
	auditListCmd.Flags().IntVar(&auditLimit, "limit", 0, "Maximum entries to print (0 = all)")
}
