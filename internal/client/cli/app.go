package cli

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/dmitrijs2005/busauth/internal/api"
	"github.com/dmitrijs2005/busauth/internal/client/client"
	"github.com/dmitrijs2005/busauth/internal/client/config"
)

type App struct {
	config *config.Config
	client client.Client
	user   *api.User
	reader *bufio.Reader
	out    io.Writer
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := client.NewAuthClient(c.ServerEndpointAddr)
	if err != nil {
		return nil, err
	}
	return newApp(c, apiClient, os.Stdin, os.Stdout), nil
}

func newApp(c *config.Config, cl client.Client, in io.Reader, out io.Writer) *App {
	return &App{config: c, client: cl, reader: bufio.NewReader(in), out: out}
}

// Run starts the REPL and closes the connection when it returns.
func (a *App) Run(ctx context.Context) error {
	defer a.client.Close()
	a.Root(ctx)
	return nil
}

func (a *App) isLoggedIn() bool {
	return a.user != nil && a.client.LoggedIn()
}

// rpcContext bounds a single command's RPC by the configured timeout.
func (a *App) rpcContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
