package cli

import (
	"context"
	"fmt"
)

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%s)", a.user.Username)
}

func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to busauth CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
