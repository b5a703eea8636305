// Command testmail sends one test message through the configured mail
// transport, to check SMTP or SES settings before running the server.
//
//	testmail -to you@example.com -c config.json
//
// When the SMTP user is set but its password is not, the password is
// read from the terminal.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dmitrijs2005/gmapauth/internal/flagx"
	"github.com/dmitrijs2005/gmapauth/internal/logging"
	"github.com/dmitrijs2005/gmapauth/internal/server/config"
	"github.com/dmitrijs2005/gmapauth/internal/server/mailer"
	"golang.org/x/term"
)

func main() {
	to := flagx.StringFlag("to")
	if to == "" {
		log.Fatal("usage: testmail -to <address> [-c config.json] [-env-file .env]")
	}

	cfg := config.LoadConfig()

	if cfg.MailTransport == config.MailTransportSMTP && cfg.SMTPUsername != "" && cfg.SMTPPassword == "" {
		password, err := readPassword(fmt.Sprintf("SMTP password for %s: ", cfg.SMTPUsername))
		if err != nil {
			log.Fatalf("read password: %v", err)
		}
		cfg.SMTPPassword = password
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New("text", "debug")
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	transport, err := mailer.NewTransport(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("mail transport: %v", err)
	}

	if err := mailer.NewNotifier(transport, cfg.MailFrom).SendTest(ctx, to); err != nil {
		log.Fatalf("send: %v", err)
	}
	logger.Info(ctx, "test mail sent", "to", to, "transport", cfg.MailTransport)
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
