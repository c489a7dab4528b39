package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"barbook/internal/catalog"
	"barbook/internal/rpc"
	"barbook/pkg/fuzzy"
	"barbook/pkg/models"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the token",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		password, _ := cmd.Flags().GetString("password")
		if email == "" || password == "" {
			return fmt.Errorf("email and password are required")
		}

		c, err := newAPIClient(false)
		if err != nil {
			return err
		}
		var resp struct {
			Token string      `json:"token"`
			User  models.User `json:"user"`
		}
		payload := map[string]string{"email": email, "password": password}
		if _, err := c.do(cmd.Context(), http.MethodPost, "/auth/login", payload, &resp); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Printf("logged in as %s (%s)\n", resp.User.Email, resp.User.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the stored token and forget it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if c, err := newAPIClient(true); err == nil {
			if _, err := c.do(cmd.Context(), http.MethodPost, "/auth/logout", nil, nil); err != nil {
				logger.Warn("server logout failed", zap.Error(err))
			}
		}
		if err := clearToken(tokenPath); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("logged out")
		return nil
	},
}

var ingredientsCmd = &cobra.Command{
	Use:   "ingredients",
	Short: "Ingredient commands",
}

var ingredientsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Fuzzy search ingredients by name and alias",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		limit, _ := cmd.Flags().GetInt("limit")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		grpcAddr, _ := cmd.Flags().GetString("grpc")

		var items []fuzzy.Result[models.Ingredient]
		if grpcAddr != "" {
			res, err := searchViaGRPC(cmd.Context(), grpcAddr, query, limit, threshold, cmd.Flags().Changed("threshold"))
			if err != nil {
				return err
			}
			items = res
		} else {
			c, err := newAPIClient(true)
			if err != nil {
				return err
			}
			q := url.Values{"q": {query}, "limit": {strconv.Itoa(limit)}}
			if cmd.Flags().Changed("threshold") {
				q.Set("threshold", strconv.FormatFloat(threshold, 'f', -1, 64))
			}
			var resp struct {
				Items []fuzzy.Result[models.Ingredient] `json:"items"`
			}
			if _, err := c.do(cmd.Context(), http.MethodGet, "/ingredients/search?"+q.Encode(), nil, &resp); err != nil {
				return err
			}
			items = resp.Items
		}

		if len(items) == 0 {
			fmt.Println("no matches")
			return nil
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCORE\tNAME\tMATCHED\tID")
		for _, r := range items {
			fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\n", r.Score, r.Item.Name, r.MatchedText, r.Item.ID)
		}
		return tw.Flush()
	},
}

func searchViaGRPC(ctx context.Context, addr, query string, limit int, threshold float64, overrideThreshold bool) ([]fuzzy.Result[models.Ingredient], error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", addr, err)
	}
	defer conn.Close()

	client := rpc.NewClient(conn)
	if token, err := readToken(tokenPath); err == nil {
		client.Token = token
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := &rpc.SearchIngredientsRequest{Query: query, Limit: limit}
	if overrideThreshold {
		req.Threshold = &threshold
	}
	resp, err := client.SearchIngredients(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

var cocktailsCmd = &cobra.Command{
	Use:   "cocktails",
	Short: "Cocktail commands",
}

var cocktailsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cocktails, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient(true)
		if err != nil {
			return err
		}

		q := url.Values{}
		if s, _ := cmd.Flags().GetString("q"); s != "" {
			q.Set("q", s)
		}
		ings, _ := cmd.Flags().GetStringSlice("ingredient")
		for _, ing := range ings {
			q.Add("ingredient", ing)
		}
		if matchAny, _ := cmd.Flags().GetBool("any"); matchAny {
			q.Set("match", "any")
		}
		for _, name := range []string{"tag", "glass"} {
			if s, _ := cmd.Flags().GetString(name); s != "" {
				q.Set(name, s)
			}
		}
		limit, _ := cmd.Flags().GetInt("limit")
		q.Set("limit", strconv.Itoa(limit))

		var resp struct {
			Total int               `json:"total"`
			Items []models.Cocktail `json:"items"`
		}
		if _, err := c.do(cmd.Context(), http.MethodGet, "/cocktails?"+q.Encode(), nil, &resp); err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tGLASS\tINGREDIENTS\tID")
		for _, ct := range resp.Items {
			names := make([]string, 0, len(ct.Lines))
			for _, l := range ct.Lines {
				names = append(names, l.IngredientName)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ct.Name, ct.Glass, strings.Join(names, ", "), ct.ID)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Printf("%d of %d\n", len(resp.Items), resp.Total)
		return nil
	},
}

var cocktailsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one cocktail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient(true)
		if err != nil {
			return err
		}
		var ct models.Cocktail
		if _, err := c.do(cmd.Context(), http.MethodGet, "/cocktails/"+url.PathEscape(args[0]), nil, &ct); err != nil {
			return err
		}
		return printJSON(ct)
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Catalog commands",
}

var catalogShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the catalog grouped by section",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newAPIClient(true)
		if err != nil {
			return err
		}
		path := "/catalog"
		if all, _ := cmd.Flags().GetBool("all"); all {
			path += "?all=true"
		}
		var resp struct {
			Sections []catalog.Section `json:"sections"`
		}
		if _, err := c.do(cmd.Context(), http.MethodGet, path, nil, &resp); err != nil {
			return err
		}
		for _, s := range resp.Sections {
			name := s.Name
			if name == "" {
				name = "(no section)"
			}
			fmt.Println(name)
			for _, it := range s.Items {
				line := "  " + it.CocktailName
				if it.PriceCents != nil {
					line += fmt.Sprintf("  %d.%02d", *it.PriceCents/100, *it.PriceCents%100)
				}
				if !it.Visible {
					line += "  [hidden]"
				}
				fmt.Println(line)
			}
		}
		return nil
	},
}

var printCmd = &cobra.Command{
	Use:   "print [cocktail-id]",
	Short: "Render a printable recipe card to an HTML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		layout, _ := cmd.Flags().GetString("layout")

		c, err := newAPIClient(true)
		if err != nil {
			return err
		}
		path := "/print/cocktails/" + url.PathEscape(args[0])
		if layout != "" {
			path += "?layout=" + url.QueryEscape(layout)
		}
		html, err := c.do(cmd.Context(), http.MethodGet, path, nil, nil)
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, html, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		fmt.Printf("wrote %s\n", out)
		return nil
	},
}

func init() {
	loginCmd.Flags().String("email", "", "email address")
	loginCmd.Flags().String("password", "", "password")

	ingredientsSearchCmd.Flags().Int("limit", 10, "max results")
	ingredientsSearchCmd.Flags().Float64("threshold", 0, "minimum score (default: bar setting)")
	ingredientsSearchCmd.Flags().String("grpc", "", "query this gRPC address instead of the HTTP API")
	ingredientsCmd.AddCommand(ingredientsSearchCmd)

	cocktailsListCmd.Flags().String("q", "", "fuzzy name query")
	cocktailsListCmd.Flags().StringSlice("ingredient", nil, "ingredient the cocktail must use (repeatable)")
	cocktailsListCmd.Flags().Bool("any", false, "match any listed ingredient instead of all")
	cocktailsListCmd.Flags().String("tag", "", "tag filter")
	cocktailsListCmd.Flags().String("glass", "", "glass filter")
	cocktailsListCmd.Flags().Int("limit", 50, "page size")
	cocktailsCmd.AddCommand(cocktailsListCmd, cocktailsShowCmd)

	catalogShowCmd.Flags().Bool("all", false, "include hidden items (editor)")
	catalogCmd.AddCommand(catalogShowCmd)

	printCmd.Flags().StringP("output", "o", "card.html", "output file")
	printCmd.Flags().String("layout", "", "layout id (default: bar setting)")
}
