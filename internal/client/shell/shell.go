package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/atinyakov/GophBank/internal/client/app"
	"github.com/atinyakov/GophBank/internal/client/apperr"
	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/client/views"
	"github.com/atinyakov/GophBank/internal/models"
)

const helpText = `Available commands:
  login | register | logout
  go <view> | views | state
  account <id> | open <type> [initial] | close <id>
  deposit <id> <amount> [description] | withdraw <id> <amount> [description]
  transfer <from> <to> <amount> [description]
  filter <account|all> <type|all>
  loan <id> | apply <type> <amount> <months> <rate> [purpose]
  payform <loan> | pay <loan> <amount> <account>
  profile set field=value...   (full_name, email, password)
  admin approve|reject|activate <loan> | admin loan <id>
  admin user <id> | admin delete <id>
  help | exit`

// Shell runs the interactive command loop.
type Shell struct {
	app      *app.App
	prompt   *Prompter
	renderer *TextRenderer
	out      io.Writer
}

// New builds a shell over a. renderer must be the one a renders with.
func New(a *app.App, prompt *Prompter, renderer *TextRenderer, out io.Writer) *Shell {
	return &Shell{app: a, prompt: prompt, renderer: renderer, out: out}
}

// errUsage reports a malformed command.
type errUsage string

func (e errUsage) Error() string { return "Usage: " + string(e) }

// Run reads commands until exit or end of input.
func (s *Shell) Run(ctx context.Context) {
	for {
		line, ok := s.prompt.Ask(fmt.Sprintf("gophbank:%s> ", s.app.State().Current))
		if !ok {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Fprintln(s.out, "Bye")
			return
		}
		shown := s.renderer.Shown()
		if err := s.Exec(ctx, args); err != nil {
			var usage errUsage
			switch {
			case errors.As(err, &usage):
				fmt.Fprintln(s.out, err)
			case s.renderer.Shown() == shown && !apperr.Global(err):
				fmt.Fprintf(s.out, "error: %s\n", apperr.Message(err))
			}
		}
	}
}

// Exec runs one command. Failures of view actions are shown by the renderer;
// usage errors and anything the renderer did not show are left to Run.
func (s *Shell) Exec(ctx context.Context, args []string) error {
	a := s.app
	switch args[0] {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "state":
		st := a.State()
		fmt.Fprintf(s.out, "view=%s pending=%t\n", st.Current, st.PendingMutation)
	case "views":
		names := make([]string, 0)
		for _, v := range s.renderer.Navigation() {
			names = append(names, string(v))
		}
		fmt.Fprintln(s.out, strings.Join(names, " "))

	case "login":
		username, _ := s.prompt.Ask("Username: ")
		password, _ := s.prompt.Ask("Password: ")
		return a.Login(ctx, username, password)
	case "register":
		var r models.Registration
		r.Username, _ = s.prompt.Ask("Username: ")
		r.Password, _ = s.prompt.Ask("Password: ")
		r.Email, _ = s.prompt.Ask("Email: ")
		r.FullName, _ = s.prompt.Ask("Full name: ")
		return a.Register(ctx, r)
	case "logout":
		a.Logout()

	case "go":
		if len(args) != 2 {
			return errUsage("go <view>")
		}
		return a.Navigate(ctx, router.View(args[1]))

	case "account":
		if len(args) != 2 {
			return errUsage("account <id>")
		}
		d, err := a.Accounts.Details(ctx, args[1])
		if err != nil {
			return err
		}
		s.renderer.Render(router.Accounts, d)
	case "open":
		if len(args) < 2 || len(args) > 3 {
			return errUsage("open <type> [initial]")
		}
		initial := decimal.Zero
		if len(args) == 3 {
			d, err := amount(args[2], "open <type> [initial]")
			if err != nil {
				return err
			}
			initial = d
		}
		return a.Accounts.Open(ctx, args[1], initial)
	case "deposit", "withdraw":
		if len(args) < 3 {
			return errUsage(args[0] + " <id> <amount> [description]")
		}
		amt, err := amount(args[2], args[0]+" <id> <amount> [description]")
		if err != nil {
			return err
		}
		desc := strings.Join(args[3:], " ")
		if args[0] == "deposit" {
			return a.Accounts.Deposit(ctx, args[1], amt, desc)
		}
		return a.Accounts.Withdraw(ctx, args[1], amt, desc)
	case "close":
		if len(args) != 2 {
			return errUsage("close <id>")
		}
		return a.Accounts.Close(ctx, args[1])

	case "transfer":
		if len(args) < 4 {
			return errUsage("transfer <from> <to> <amount> [description]")
		}
		amt, err := amount(args[3], "transfer <from> <to> <amount> [description]")
		if err != nil {
			return err
		}
		return a.Transfers.Transfer(ctx, models.Transfer{
			FromAccountID: args[1],
			ToAccountID:   args[2],
			Amount:        amt,
			Description:   strings.Join(args[4:], " "),
		})
	case "filter":
		if len(args) != 3 {
			return errUsage("filter <account|all> <type|all>")
		}
		f := views.TransactionFilter{AccountID: allOr(args[1]), Type: models.TxType(allOr(args[2]))}
		return a.Transactions.SetFilter(ctx, f)

	case "loan":
		if len(args) != 2 {
			return errUsage("loan <id>")
		}
		d, err := a.Loans.Details(ctx, args[1])
		if err != nil {
			return err
		}
		s.renderer.Render(router.Loans, d)
	case "apply":
		const usage = "apply <type> <amount> <months> <rate> [purpose]"
		if len(args) < 5 {
			return errUsage(usage)
		}
		amt, err := amount(args[2], usage)
		if err != nil {
			return err
		}
		term, err := strconv.Atoi(args[3])
		if err != nil {
			return errUsage(usage)
		}
		rate, err := decimal.NewFromString(args[4])
		if err != nil {
			return errUsage(usage)
		}
		return a.Loans.Apply(ctx, models.LoanApplication{
			Type:         args[1],
			Amount:       amt,
			TermMonths:   term,
			InterestRate: rate,
			Purpose:      strings.Join(args[5:], " "),
		})
	case "payform":
		if len(args) != 2 {
			return errUsage("payform <loan>")
		}
		form, err := a.Loans.PaymentForm(ctx, args[1])
		if err != nil {
			return err
		}
		s.renderer.Render(router.Loans, form)
	case "pay":
		if len(args) != 4 {
			return errUsage("pay <loan> <amount> <account>")
		}
		amt, err := amount(args[2], "pay <loan> <amount> <account>")
		if err != nil {
			return err
		}
		return a.Loans.Pay(ctx, args[1], amt, args[3])

	case "profile":
		return s.profile(ctx, args[1:])
	case "admin":
		return s.admin(ctx, args[1:])

	default:
		fmt.Fprintln(s.out, "Unknown command. Type 'help' for a list of commands.")
	}
	return nil
}

func (s *Shell) profile(ctx context.Context, args []string) error {
	const usage = "profile set field=value..."
	if len(args) < 2 || args[0] != "set" {
		return errUsage(usage)
	}
	var u models.ProfileUpdate
	for _, kv := range args[1:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return errUsage(usage)
		}
		switch k {
		case "full_name", "name":
			u.FullName = strings.ReplaceAll(v, "_", " ")
		case "email":
			u.Email = v
		case "password":
			u.Password = v
		default:
			return errUsage(usage)
		}
	}
	return s.app.Profile.Update(ctx, u)
}

func (s *Shell) admin(ctx context.Context, args []string) error {
	const usage = "admin approve|reject|activate|loan|user|delete <id>"
	if len(args) != 2 {
		return errUsage(usage)
	}
	adm, err := s.app.Admin()
	if err != nil {
		fmt.Fprintln(s.out, "admin access required")
		return nil
	}
	id := args[1]
	switch args[0] {
	case "approve":
		return adm.Approve(ctx, id)
	case "reject":
		return adm.Reject(ctx, id)
	case "activate":
		return adm.Activate(ctx, id)
	case "delete":
		return adm.DeleteUser(ctx, id)
	case "user":
		d, err := adm.UserDetail(ctx, id)
		if err != nil {
			return err
		}
		s.renderer.Render(router.Admin, d)
	case "loan":
		l, payment, err := adm.LoanDetail(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Applicant: %s\n", l.Applicant)
		s.renderer.Render(router.Admin, views.LoanDetails{Loan: l.Loan, MonthlyPayment: payment})
	default:
		return errUsage(usage)
	}
	return nil
}

func amount(s, usage string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "$"))
	if err != nil {
		return decimal.Zero, errUsage(usage)
	}
	return d, nil
}

func allOr(s string) string {
	if s == "all" {
		return ""
	}
	return s
}
