package cmd

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/friedchicken888/cab432-a2/config"
	"github.com/friedchicken888/cab432-a2/internal/fractal"
	"github.com/friedchicken888/cab432-a2/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// renderParamFlags 与 HTTP 查询参数同名
var renderParamFlags = []string{"width", "height", "iterations", "power", "real", "imag", "scale", "offsetX", "offsetY", "color"}

// renderCmd 本地渲染单个分形，不经过缓存和数据库
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render one fractal to a PNG file and print its hash",
	Long: `Render one fractal locally, bypassing cache, database and blob store.
Parameters use the same names and defaults as the HTTP query string.

Example:
  fractal-gallery render --width 640 --height 480 --color fire -o fire.png`,
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.Component("render")
		out, _ := cmd.Flags().GetString("output")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		if timeout <= 0 {
			timeout = config.Get().RenderTimeout
		}

		hash, path, err := renderToFile(cmd.Context(), paramValues(cmd.Flags()), out, timeout)
		if err != nil {
			log.Fatal("render failed", zap.Error(err))
		}
		fmt.Println(hash)
		log.Info("fractal rendered", zap.String("hash", hash), zap.String("path", path))
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	for _, name := range renderParamFlags {
		renderCmd.Flags().String(name, "", fmt.Sprintf("fractal %s", name))
	}
	renderCmd.Flags().StringP("output", "o", "", "Output file (defaults to <hash>.png)")
	renderCmd.Flags().Duration("timeout", 0, "Render time budget (defaults to render_timeout)")
}

// paramValues 只收集显式设置的参数
func paramValues(flags *pflag.FlagSet) url.Values {
	q := url.Values{}
	for _, name := range renderParamFlags {
		if f := flags.Lookup(name); f != nil && f.Changed {
			q.Set(name, f.Value.String())
		}
	}
	return q
}

func renderToFile(ctx context.Context, q url.Values, out string, timeout time.Duration) (string, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := fractal.ParseQuery(q)
	if err != nil {
		return "", "", err
	}
	hash, err := p.Digest()
	if err != nil {
		return "", "", err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	data, err := fractal.NewJuliaRenderer(0).Render(ctx, p)
	if err != nil {
		return "", "", err
	}

	if out == "" {
		out = hash + ".png"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write %s: %w", out, err)
	}
	return hash, out, nil
}
