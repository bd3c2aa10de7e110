package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/blankslate-party/blankslate/internal/catalog"
	"github.com/blankslate-party/blankslate/internal/config"
	"github.com/blankslate-party/blankslate/internal/room"
	"github.com/blankslate-party/blankslate/internal/ws"
	staticserver "github.com/blankslate-party/blankslate/static"
)

const version = "1.0.0"

const qrSize = 256

func main() {
	_ = godotenv.Load()

	cfg := &config.Config{}
	if err := newCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newCmd(cfg *config.Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BLANKSLATE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "blankslate",
		Short:         "Real-time server for a judged party card game.",
		Args:          cobra.ExactArgs(0),
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: BLANKSLATE_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: BLANKSLATE_PORT)")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "external base URL for join links (env: BLANKSLATE_PUBLIC_URL)")
	fs.StringVar(&cfg.CardsFile, "cards-file", "", "path to a card catalog JSON overriding the built-in themes (env: BLANKSLATE_CARDS_FILE)")
	fs.BoolVar(&cfg.ExportEnabled, "export", false, "append finished rounds to the export file (env: BLANKSLATE_EXPORT)")
	fs.StringVar(&cfg.ExportFile, "export-file", "./blankslate-results.txt", "path for round exports (env: BLANKSLATE_EXPORT_FILE)")
	fs.BoolVarP(&cfg.Verbose, "verbose", "v", false, "display additional output (env: BLANKSLATE_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("blankslate v{{.Version}}\n")

	return cmd
}

func run(cfg *config.Config) error {
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cat, err := catalog.Load(cfg.CardsFile)
	if err != nil {
		// Not fatal: rooms fall back to whatever the deck builder can
		// still resolve, worst case the exhaustion placeholder.
		zerologlog.Error().Err(err).Msg("card catalog load failed, starting with empty built-ins")
	} else {
		zerologlog.Info().Strs("themes", cat.Names()).Msg("card catalog loaded")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/socket.io") {
			return
		}
		zerologlog.Info().Str("path", path).Int("status", c.Writer.Status()).Dur("dur", time.Since(start)).Msg("http")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	rooms := room.NewRegistry()
	sock := ws.New(rooms, cat, *cfg)
	io := sock.Mount(r)
	defer io.Close()

	r.GET("/api/themes", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"themes": cat.Names()})
	})
	r.GET("/api/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": rooms.Summaries()})
	})
	// Join-link QR code for sharing a room across the couch.
	r.GET("/api/rooms/:id/qr", func(c *gin.Context) {
		id := c.Param("id")
		if _, err := rooms.Get(id); err != nil {
			c.Status(http.StatusNotFound)
			return
		}
		url := cfg.BaseURL() + "/?room=" + id
		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})

	r.NoRoute(func(c *gin.Context) {
		staticserver.Handler().ServeHTTP(c.Writer, c.Request)
	})

	zerologlog.Info().Str("addr", cfg.Addr()).Msg("listening")
	return r.Run(cfg.Addr())
}
