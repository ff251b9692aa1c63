// Package shell is the line-oriented front end of the client: a text renderer
// for the views and a REPL that turns commands into view actions.
package shell

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/atinyakov/GophBank/internal/client/router"
	"github.com/atinyakov/GophBank/internal/client/views"
	"github.com/atinyakov/GophBank/internal/models"
)

// TextRenderer prints views to a terminal.
type TextRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	prompt *Prompter
	nav    []router.View
	// shown counts errors and acknowledgments printed so far
	shown int
}

// NewTextRenderer prints to out and waits for acknowledgments on prompt.
func NewTextRenderer(out io.Writer, prompt *Prompter) *TextRenderer {
	return &TextRenderer{out: out, prompt: prompt}
}

func (t *TextRenderer) ShowView(v router.View) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "\n== %s ==\n", title(v))
}

func (t *TextRenderer) ShowError(v router.View, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, "[%s] error: %s\n", v, msg)
	t.shown++
}

func (t *TextRenderer) Acknowledge(msg string) {
	t.mu.Lock()
	fmt.Fprintf(t.out, "%s\n", msg)
	t.shown++
	t.mu.Unlock()
	if t.prompt != nil {
		_, _ = t.prompt.Ask("Press Enter to continue...")
	}
}

func (t *TextRenderer) SetNavigation(v []router.View) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nav = append(t.nav[:0], v...)
}

// Shown returns how many errors and acknowledgments have been printed.
func (t *TextRenderer) Shown() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.shown
}

// Navigation returns the views last published by the router.
func (t *TextRenderer) Navigation() []router.View {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]router.View(nil), t.nav...)
}

func (t *TextRenderer) Render(v router.View, model any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := tabwriter.NewWriter(t.out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	switch m := model.(type) {
	case views.DashboardModel:
		if m.User != nil {
			fmt.Fprintf(w, "Welcome, %s\n", m.User.FullName)
		}
		fmt.Fprintf(w, "Total balance:\t%s\n", Money(m.TotalBalance))
		fmt.Fprintf(w, "Accounts:\t%d\n", len(m.Accounts))
		fmt.Fprintf(w, "Active loans:\t%d\n", m.ActiveLoans)
		fmt.Fprintf(w, "Transactions (30 days):\t%d\n", m.LastMonth)
		fmt.Fprintln(w, "Recent activity:")
		entries(w, m.Recent)
	case views.AccountsModel:
		accounts(w, m.Accounts)
	case views.AccountDetails:
		accounts(w, []models.Account{m.Account})
		if m.Closable {
			fmt.Fprintln(w, "This account can be closed.")
		}
		entries(w, m.Entries)
	case views.TransfersModel:
		fmt.Fprintln(w, "Accounts available for transfers:")
		accounts(w, m.Accounts)
	case views.TransactionsModel:
		fmt.Fprintf(w, "Filter: account=%s type=%s\n", orAll(m.Filter.AccountID), orAll(string(m.Filter.Type)))
		entries(w, m.Entries)
	case views.LoansModel:
		loans(w, m.Loans)
	case views.LoanDetails:
		loans(w, []models.Loan{m.Loan})
		fmt.Fprintf(w, "Monthly payment:\t%s\n", Money(m.MonthlyPayment))
	case views.PaymentForm:
		loans(w, []models.Loan{m.Loan})
		if m.Prefill != nil {
			fmt.Fprintf(w, "Suggested payment:\t%s\n", Money(*m.Prefill))
		}
		fmt.Fprintln(w, "Pay from:")
		accounts(w, m.Accounts)
	case views.ProfileModel:
		if m.User != nil {
			fmt.Fprintf(w, "Username:\t%s\n", m.User.Username)
			fmt.Fprintf(w, "Full name:\t%s\n", m.User.FullName)
			fmt.Fprintf(w, "Email:\t%s\n", m.User.Email)
			fmt.Fprintf(w, "Role:\t%s\n", m.User.Role)
			fmt.Fprintf(w, "Member since:\t%s\n", Date(m.User.CreatedAt.Time))
		}
	case views.AdminModel:
		fmt.Fprintf(w, "Users: %d\tAccounts: %d\tTransactions: %d\tLoans: %d\n",
			m.Stats.Users, m.Stats.Accounts, m.Stats.Transactions, m.Stats.Loans)
		fmt.Fprintln(w, "Pending applications:")
		adminLoans(w, m.Pending)
		fmt.Fprintln(w, "Approved, awaiting activation:")
		adminLoans(w, m.Approved)
		fmt.Fprintln(w, "Users:")
		for _, u := range m.Users {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName, u.Role)
		}
	case views.UserDetail:
		fmt.Fprintf(w, "%s (%s) <%s> %s\n", m.User.FullName, m.User.Username, m.User.Email, m.User.Role)
		accounts(w, m.Accounts)
	default:
		fmt.Fprintf(w, "%+v\n", model)
	}
}

func accounts(w io.Writer, list []models.Account) {
	if len(list) == 0 {
		fmt.Fprintln(w, "  no accounts")
		return
	}
	for _, a := range list {
		status := "active"
		if !a.Active {
			status = "closed"
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", a.ID, a.Type, a.Number, Money(a.Balance), status)
	}
}

func entries(w io.Writer, list []views.Entry) {
	if len(list) == 0 {
		fmt.Fprintln(w, "  no transactions")
		return
	}
	for _, e := range list {
		desc := e.Tx.Description
		if e.Counterparty != "" {
			desc = strings.TrimSpace(desc + " (" + e.Counterparty + ")")
		}
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
			Date(e.Tx.CreatedAt.Time), e.Class.Category, e.Account, SignedMoney(e.Signed), desc)
	}
}

func loans(w io.Writer, list []models.Loan) {
	if len(list) == 0 {
		fmt.Fprintln(w, "  no loans")
		return
	}
	for _, l := range list {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s%%\t%d mo\tbalance %s\t%s\n",
			l.ID, l.Type, Money(l.Amount), l.InterestRate, l.TermMonths, Money(l.Balance), l.Status)
	}
}

func adminLoans(w io.Writer, list []views.AdminLoan) {
	if len(list) == 0 {
		fmt.Fprintln(w, "  none")
		return
	}
	for _, l := range list {
		fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%d mo\t%s\n",
			l.ID, l.Applicant, l.Type, Money(l.Amount), l.TermMonths, Date(l.CreatedAt.Time))
	}
}

func orAll(s string) string {
	if s == "" {
		return "all"
	}
	return s
}

func title(v router.View) string {
	if v == router.None {
		return "GophBank"
	}
	s := string(v)
	return strings.ToUpper(s[:1]) + s[1:]
}
