package sandbox

import (
	"net/http"
	"sort"
	"strings"

	"github.com/jmcleod/pocketledger/model"
)

func checkCategoryInput(in *model.CategoryInput) error {
	in.Name = strings.TrimSpace(in.Name)
	return checkBody(in, categoryRules)
}

// ownedCategory returns the caller's category id. Callers hold s.mu.
func (s *Server) ownedCategory(owner, id int64) (*category, error) {
	c, ok := s.categories[id]
	if !ok || c.Owner != owner {
		return nil, notFound("Categoria não encontrada")
	}
	return c, nil
}

func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	owner := userIDFromContext(r.Context())
	kind := model.Kind(r.URL.Query().Get("tipo"))

	s.mu.Lock()
	out := make([]model.Category, 0)
	for _, c := range s.categories {
		if c.Owner == owner && (kind == "" || c.Kind == kind) {
			out = append(out, c.Category)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	c, err := s.ownedCategory(userIDFromContext(r.Context()), id)
	var out model.Category
	if err == nil {
		out = c.Category
	}
	s.mu.Unlock()
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in model.CategoryInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := checkCategoryInput(&in); err != nil {
		mapError(w, err)
		return
	}
	s.mu.Lock()
	c := &category{
		Category: model.Category{ID: s.allocID(), Name: in.Name, Kind: in.Kind},
		Owner:    userIDFromContext(r.Context()),
	}
	s.categories[c.ID] = c
	out := c.Category
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var in model.CategoryInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := checkCategoryInput(&in); err != nil {
		mapError(w, err)
		return
	}
	s.mu.Lock()
	c, err := s.ownedCategory(userIDFromContext(r.Context()), id)
	var out model.Category
	if err == nil {
		c.Name, c.Kind = in.Name, in.Kind
		out = c.Category
	}
	s.mu.Unlock()
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	owner := userIDFromContext(r.Context())
	s.mu.Lock()
	_, err := s.ownedCategory(owner, id)
	if err == nil {
		for _, t := range s.transactions {
			if t.CategoryID == id {
				err = conflict("Categoria possui transações vinculadas")
				break
			}
		}
	}
	if err == nil {
		delete(s.categories, id)
	}
	s.mu.Unlock()
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Categoria excluída com sucesso"})
}
