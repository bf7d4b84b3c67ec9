package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/email"
	"github.com/evcraddock/field-visits/internal/reminder"
)

func newRemindersCmd() *cobra.Command {
	var (
		notify   bool
		watch    bool
		schedule string
	)

	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "List or send due follow-up reminders",
		Long: `List open entries whose reminder date has come. --notify sends them once;
--watch keeps running and sends them on a schedule. Reminders are texted when
TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_PHONE_NUMBER and a reminder phone
are configured, mailed when FV_SMTP_HOST, FV_SMTP_FROM and a reminder email
are configured, and logged otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if watch {
				return runRemindersWatch(cmd, schedule)
			}
			if notify {
				return runRemindersNotify(cmd)
			}
			return runReminders(cmd)
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "send due reminders now")
	cmd.Flags().BoolVar(&watch, "watch", false, "keep running and send reminders on a schedule")
	cmd.Flags().StringVar(&schedule, "schedule", reminder.DefaultSchedule, "cron schedule for --watch")

	return cmd
}

func runReminders(cmd *cobra.Command) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}

	entries, err := c.ListEntries(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading entries: %w", err)
	}
	due := reminder.Due(entries, time.Now())

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), due)
	}
	if len(due) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No reminders due.")
		return nil
	}
	return printEntryTable(cmd.OutOrStdout(), due)
}

func runRemindersNotify(cmd *cobra.Command) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	notifier, err := newNotifier()
	if err != nil {
		return err
	}

	sent, err := reminder.NewScheduler(c, notifier, "").RunOnce(cmd.Context())
	if isJSON() {
		if jerr := printJSON(cmd.OutOrStdout(), map[string]int{"sent": sent}); jerr != nil {
			return jerr
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Sent %d reminder(s).\n", sent)
	}
	return err
}

func runRemindersWatch(cmd *cobra.Command, schedule string) error {
	c, err := newAPIClient()
	if err != nil {
		return err
	}
	notifier, err := newNotifier()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := reminder.NewScheduler(c, notifier, schedule)
	if err := s.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Watching reminders (%s). Press Ctrl+C to stop.\n", schedule)

	<-ctx.Done()
	s.Stop()
	return nil
}

// newNotifier sends through every configured channel: SMS when Twilio and a
// phone are set, email when SMTP and an address are set. With neither,
// reminders are logged.
func newNotifier() (reminder.Notifier, error) {
	var notifiers reminder.Multi

	sms := reminder.SMSConfig{
		AccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		AuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		From:       os.Getenv("TWILIO_PHONE_NUMBER"),
		To:         getReminderPhone(),
	}
	if sms.AccountSID != "" || sms.AuthToken != "" {
		n, err := reminder.NewSMSNotifier(sms)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	smtp := email.SMTPConfig{
		Host: os.Getenv("FV_SMTP_HOST"),
		Port: os.Getenv("FV_SMTP_PORT"),
		User: os.Getenv("FV_SMTP_USER"),
		Pass: os.Getenv("FV_SMTP_PASS"),
		From: os.Getenv("FV_SMTP_FROM"),
	}
	if smtp.IsConfigured() {
		var to []string
		if addr := getReminderEmail(); addr != "" {
			to = append(to, addr)
		}
		n, err := reminder.NewEmailNotifier(smtp, to...)
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	switch len(notifiers) {
	case 0:
		return reminder.LogNotifier{}, nil
	case 1:
		return notifiers[0], nil
	}
	return notifiers, nil
}
