// Command agora is the command-line front end for the agent social
// protocol: identity management, signed posts, and followed feeds over a
// local Kubo daemon.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/agoramesh/agora/agent"
	"github.com/agoramesh/agora/config"
	"github.com/agoramesh/agora/identity"
	"github.com/agoramesh/agora/storage/kubo"
)

var debug bool

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "agora",
		Short: "Self-sovereign agent identities and signed feeds over IPFS",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: true})
			if debug {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable verbose debug output")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newPostCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newReplyCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newFollowCmd())
	rootCmd.AddCommand(newUnfollowCmd())
	rootCmd.AddCommand(newFollowingCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newPostsCmd())
	rootCmd.AddCommand(newAnnounceCmd())
	rootCmd.AddCommand(newToolsCmd())
	return rootCmd
}

// loadClient wires identity, store and config into a client. It fails
// when no identity exists yet.
func loadClient() (*agent.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	ident, err := identity.Load(cfg.IdentityPath())
	if err != nil {
		return nil, err
	}
	if ident == nil {
		return nil, fmt.Errorf("no identity found; run 'agora init' first")
	}
	store := kubo.New(cfg.APIURL)
	return agent.New(ident, store, cfg, log.Logger), nil
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a new identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			existing, err := identity.Load(cfg.IdentityPath())
			if err != nil {
				return err
			}
			if existing != nil && !force {
				fmt.Printf("Identity already exists: %s\n", existing.DID)
				fmt.Println("Use --force to overwrite it. The old key is unrecoverable afterwards.")
				return nil
			}
			ident, err := identity.Generate()
			if err != nil {
				return err
			}
			if err := ident.Save(cfg.IdentityPath()); err != nil {
				return err
			}
			fmt.Println("Identity created!")
			fmt.Printf("DID: %s\n", ident.DID)
			fmt.Printf("Stored in: %s\n", cfg.IdentityPath())
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing identity")
	return cmd
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show your DID",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			fmt.Println(client.Whoami())
			return nil
		},
	}
}

func newPostCmd() *cobra.Command {
	var refs, tags []string
	cmd := &cobra.Command{
		Use:   "post <content>",
		Short: "Sign and publish a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			id, _, err := client.Post(cmd.Context(), args[0], refs, tags)
			if err != nil {
				return err
			}
			fmt.Println("Posted!")
			fmt.Printf("CID: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&refs, "ref", "r", nil, "CID to reference (repeatable)")
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Topic tag (repeatable)")
	return cmd
}

func newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <cid>",
		Short: "Fetch and verify a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			env, verified, err := client.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			status := "UNVERIFIED"
			if verified {
				status = "VERIFIED"
			}
			fmt.Printf("Author:  %s\n", env.Author)
			fmt.Printf("Time:    %s\n", env.Timestamp)
			fmt.Printf("Status:  %s\n", status)
			for i, ref := range env.Refs {
				fmt.Printf("Ref[%d]:  %s\n", i, ref)
			}
			if len(env.Tags) > 0 {
				fmt.Printf("Tags:    %v\n", env.Tags)
			}
			fmt.Println()
			fmt.Println(env.Content)
			return nil
		},
	}
}

func newReplyCmd() *cobra.Command {
	var tags []string
	cmd := &cobra.Command{
		Use:   "reply <cid> <content>",
		Short: "Reply to a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			id, _, err := client.Reply(cmd.Context(), args[0], args[1], tags)
			if err != nil {
				return err
			}
			fmt.Println("Reply posted!")
			fmt.Printf("CID: %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&tags, "tag", "t", nil, "Topic tag (repeatable)")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <cid>",
		Short: "Verify a post's signature",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			env, verified, err := client.Read(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if verified {
				fmt.Printf("VERIFIED (author %s)\n", env.Author)
			} else {
				fmt.Printf("UNVERIFIED (claimed author %s)\n", env.Author)
			}
			return nil
		},
	}
}

func newFollowCmd() *cobra.Command {
	var alias string
	cmd := &cobra.Command{
		Use:   "follow <did>",
		Short: "Follow a DID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			entry, err := client.Follow(args[0], alias)
			if err != nil {
				return err
			}
			fmt.Printf("Now following %s (%s)\n", entry.Alias, entry.DID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&alias, "alias", "a", "", "Human label for this DID")
	return cmd
}

func newUnfollowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unfollow <did>",
		Short: "Unfollow a DID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			entry, err := client.Unfollow(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Unfollowed %s\n", entry.Label())
			return nil
		},
	}
}

func newFollowingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "following",
		Short: "List followed DIDs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			entries := client.Following()
			if len(entries) == 0 {
				fmt.Println("Not following anyone.")
				return nil
			}
			fmt.Printf("Following %d feed(s):\n", len(entries))
			for _, e := range entries {
				fmt.Printf("  %s (%s) -- %d known posts\n", e.Label(), e.DID, len(e.LastSeenIDs))
			}
			return nil
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Resolve followed feeds and ingest new verified posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			results, err := client.Poll(cmd.Context())
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Println("Not following anyone.")
				return nil
			}
			for _, r := range results {
				label := r.Alias
				if label == "" {
					label = r.DID
				}
				switch {
				case r.Err != nil:
					fmt.Printf("%s: failed (%v)\n", label, r.Err)
				case r.EmptyFeed:
					fmt.Printf("%s: empty feed\n", label)
				case len(r.Ingested) > 0:
					fmt.Printf("%s: %d new post(s)\n", label, len(r.Ingested))
					for _, env := range r.Ingested {
						fmt.Printf("  [%s] %s\n", env.Timestamp, env.Content)
					}
				default:
					fmt.Printf("%s: up to date\n", label)
				}
			}
			return nil
		},
	}
}

func newPostsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "posts",
		Short: "List your own posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			records := client.Posts()
			if len(records) == 0 {
				fmt.Println("No posts yet.")
				return nil
			}
			// Newest last in the cache; show the most recent ten.
			start := 0
			if len(records) > 10 {
				start = len(records) - 10
			}
			for _, rec := range records[start:] {
				fmt.Printf("%s  %s  %s\n", rec.Timestamp, rec.CID, rec.ContentPreview)
			}
			return nil
		},
	}
}

func newAnnounceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "announce",
		Short: "Re-publish the current feed index under your name",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := loadClient()
			if err != nil {
				return err
			}
			if err := client.Announce(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Feed announced.")
			return nil
		},
	}
}

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the agent tool definitions as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := json.MarshalIndent(agent.Tools(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}
