package main

import (
	"bufio"
	"database/sql"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"barbook/internal/cocktails"
	"barbook/internal/ingredients"
	"barbook/internal/transfer"
	"barbook/pkg/config"
	"barbook/pkg/database"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Live change events",
}

var eventsListenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print change events as they happen",
	Long: `Connects to the server's WebSocket feed (or the raw TCP sync port with
--tcp) and prints one JSON event per line until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		tcpAddr, _ := cmd.Flags().GetString("tcp")
		pretty, _ := cmd.Flags().GetBool("pretty")
		if tcpAddr != "" {
			return listenTCP(tcpAddr, pretty)
		}
		wsURL, err := websocketURL(baseURL, "/ws")
		if err != nil {
			return fmt.Errorf("ws url: %w", err)
		}
		return listenWS(wsURL, pretty)
	},
}

func listenTCP(addr string, pretty bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	logger.Info("connected", zap.String("addr", addr))
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		printEvent(sc.Bytes(), pretty)
	}
	return sc.Err()
}

func listenWS(wsURL string, pretty bool) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	logger.Info("connected", zap.String("url", wsURL))
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		printEvent(msg, pretty)
	}
}

func printEvent(line []byte, pretty bool) {
	if !pretty {
		fmt.Println(string(line))
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Println(string(line))
		return
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	fmt.Println(string(b))
}

// openLocalDB opens the database named by --db, or the configured one.
func openLocalDB() (*sql.DB, error) {
	path := dbPath
	if path == "" {
		cfg, err := config.Load("")
		if err != nil {
			return nil, err
		}
		path = cfg.DBPath
	}
	db, err := database.Open(database.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	logger.Debug("opened database", zap.String("path", path))
	return db, nil
}

func newLocalTransfer(db *sql.DB) *transfer.Transfer {
	return transfer.New(ingredients.NewRepo(db), cocktails.NewRepo(db), logger)
}

var importCmd = &cobra.Command{
	Use:   "import [file.csv]",
	Short: "Import cocktails from CSV into the local database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		db, err := openLocalDB()
		if err != nil {
			return err
		}
		defer db.Close()

		rep, err := newLocalTransfer(db).Import(cmd.Context(), f)
		if err != nil {
			return fmt.Errorf("import %s: %w", args[0], err)
		}
		fmt.Printf("rows=%d created=%d updated=%d new_ingredients=%d\n",
			rep.Rows, rep.CocktailsCreated, rep.CocktailsUpdated, rep.IngredientsCreated)
		for from, to := range rep.IngredientsMatched {
			fmt.Printf("  %q -> %q\n", from, to)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file.csv]",
	Short: "Export all cocktails from the local database to CSV",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openLocalDB()
		if err != nil {
			return err
		}
		defer db.Close()

		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		n, err := newLocalTransfer(db).Export(cmd.Context(), f)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("export %s: %w", args[0], err)
		}
		fmt.Printf("exported %d cocktails to %s\n", n, args[0])
		return nil
	},
}

func init() {
	eventsListenCmd.Flags().String("tcp", "", "TCP sync address instead of the WebSocket feed")
	eventsListenCmd.Flags().Bool("pretty", false, "indent JSON")
	eventsCmd.AddCommand(eventsListenCmd)
}
