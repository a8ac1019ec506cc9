package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coah80/userbot/internal/spotify"
)

func newSpotifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spotify",
		Short: "Spotify credential bootstrap",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "login",
		Short: "Authorize the account and cache the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := spotify.NewAuthenticator(a.cfg.Spotify, cmd.OutOrStdout(), a.logger)
			if err != nil {
				return err
			}
			if _, err := auth.Login(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Token cached at %s\n", a.cfg.Spotify.CachePath())
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "now-playing",
		Short: "Print the currently playing track",
		RunE: func(cmd *cobra.Command, args []string) error {
			auth, err := spotify.NewAuthenticator(a.cfg.Spotify, cmd.OutOrStdout(), a.logger)
			if err != nil {
				return err
			}
			client, err := auth.Client(cmd.Context())
			if err != nil {
				return err
			}
			track, err := spotify.NowPlaying(cmd.Context(), client)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), track)
			return nil
		},
	})

	return cmd
}
