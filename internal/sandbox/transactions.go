package sandbox

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jmcleod/pocketledger/model"
)

// SummaryResponse is the body of GET /transacoes/resumo.
type SummaryResponse struct {
	Income  string `json:"receitas"`
	Expense string `json:"despesas"`
	Balance string `json:"saldo"`
}

// checkTransactionInput validates in against the owner's categories. Callers hold s.mu.
func (s *Server) checkTransactionInput(owner int64, in *model.TransactionInput) error {
	in.Description = strings.TrimSpace(in.Description)
	if err := checkBody(in, transactionRules); err != nil {
		return err
	}
	c, err := s.ownedCategory(owner, in.CategoryID)
	if err != nil {
		return err
	}
	if c.Kind != in.Kind {
		return invalid("O tipo da transação deve ser igual ao da categoria")
	}
	return nil
}

// view renders t with its category name. Callers hold s.mu.
func (s *Server) view(t *transaction) model.Transaction {
	out := model.Transaction{
		ID:          t.ID,
		Description: t.Description,
		Amount:      t.Amount,
		Date:        t.Date,
		Kind:        t.Kind,
		CategoryID:  t.CategoryID,
	}
	if c, ok := s.categories[t.CategoryID]; ok {
		out.CategoryName = c.Name
	}
	return out
}

type transactionQuery struct {
	kind       model.Kind
	from, to   string
	categoryID int64
}

func parseTransactionQuery(r *http.Request) (transactionQuery, error) {
	q := r.URL.Query()
	tq := transactionQuery{
		kind: model.Kind(q.Get("tipo")),
		from: q.Get("data_inicio"),
		to:   q.Get("data_fim"),
	}
	if tq.from != "" && !validDate(tq.from) || tq.to != "" && !validDate(tq.to) {
		return tq, invalid("Data inválida, use o formato AAAA-MM-DD")
	}
	if raw := q.Get("id_categoria"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return tq, invalid("Categoria inválida")
		}
		tq.categoryID = id
	}
	return tq, nil
}

// match reports whether t passes the query. Dates compare lexically in DateLayout.
func (tq transactionQuery) match(t *transaction) bool {
	switch {
	case tq.kind != "" && t.Kind != tq.kind:
		return false
	case tq.from != "" && t.Date < tq.from:
		return false
	case tq.to != "" && t.Date > tq.to:
		return false
	case tq.categoryID != 0 && t.CategoryID != tq.categoryID:
		return false
	}
	return true
}

func (s *Server) ListTransactions(w http.ResponseWriter, r *http.Request) {
	tq, err := parseTransactionQuery(r)
	if err != nil {
		mapError(w, err)
		return
	}
	owner := userIDFromContext(r.Context())

	s.mu.Lock()
	out := make([]model.Transaction, 0)
	for _, t := range s.transactions {
		if t.Owner == owner && tq.match(t) {
			out = append(out, s.view(t))
		}
	}
	s.mu.Unlock()

	// Newest first.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	owner := userIDFromContext(r.Context())
	s.mu.Lock()
	t, found := s.transactions[id]
	var out model.Transaction
	if found && t.Owner == owner {
		out = s.view(t)
	}
	s.mu.Unlock()
	if !found || t.Owner != owner {
		writeError(w, http.StatusNotFound, "Transação não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in model.TransactionInput
	if !decodeBody(w, r, &in) {
		return
	}
	owner := userIDFromContext(r.Context())

	s.mu.Lock()
	if err := s.checkTransactionInput(owner, &in); err != nil {
		s.mu.Unlock()
		mapError(w, err)
		return
	}
	t := &transaction{
		ID:          s.allocID(),
		Owner:       owner,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        in.Date,
		Kind:        in.Kind,
		CategoryID:  in.CategoryID,
	}
	s.transactions[t.ID] = t
	out := s.view(t)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in model.TransactionInput
	if !decodeBody(w, r, &in) {
		return
	}
	owner := userIDFromContext(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.transactions[id]
	if !found || t.Owner != owner {
		writeError(w, http.StatusNotFound, "Transação não encontrada")
		return
	}
	if err := s.checkTransactionInput(owner, &in); err != nil {
		mapError(w, err)
		return
	}
	t.Description, t.Amount, t.Date, t.Kind, t.CategoryID = in.Description, in.Amount, in.Date, in.Kind, in.CategoryID
	writeJSON(w, http.StatusOK, s.view(t))
}

func (s *Server) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	owner := userIDFromContext(r.Context())
	s.mu.Lock()
	t, found := s.transactions[id]
	if found && t.Owner == owner {
		delete(s.transactions, id)
	}
	s.mu.Unlock()
	if !found || t.Owner != owner {
		writeError(w, http.StatusNotFound, "Transação não encontrada")
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Transação excluída com sucesso"})
}

func (s *Server) Summary(w http.ResponseWriter, r *http.Request) {
	tq, err := parseTransactionQuery(r)
	if err != nil {
		mapError(w, err)
		return
	}
	tq.kind, tq.categoryID = "", 0
	owner := userIDFromContext(r.Context())

	income, expense := decimal.Zero, decimal.Zero
	s.mu.Lock()
	for _, t := range s.transactions {
		if t.Owner != owner || !tq.match(t) {
			continue
		}
		if t.Kind == model.Income {
			income = income.Add(t.Amount)
		} else {
			expense = expense.Add(t.Amount)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, SummaryResponse{
		Income:  income.StringFixed(2),
		Expense: expense.StringFixed(2),
		Balance: income.Sub(expense).StringFixed(2),
	})
}
