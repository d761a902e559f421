package resolver

import (
	"github.com/sirupsen/logrus"

	"github.com/lojasmm/wamenu/internal/menu"
)

// Source provides the current configuration snapshot.
type Source interface {
	Tree() (*menu.Tree, error)
}

// Resolver looks up commands, lists and replies in the configuration.
// Lookups never fail: a missing key or an unreadable source is a miss.
type Resolver struct {
	source Source
	log    logrus.FieldLogger
}

func New(source Source, log logrus.FieldLogger) *Resolver {
	return &Resolver{source: source, log: log.WithField("component", "resolver")}
}

// Command matches a trigger exactly after normalization.
func (r *Resolver) Command(trigger string) (menu.Command, bool) {
	tree := r.tree()
	if tree == nil {
		return menu.Command{}, false
	}
	cmd, ok := tree.Responses[menu.NormalizeTrigger(trigger)]
	return cmd, ok
}

func (r *Resolver) List(id string) (menu.List, bool) {
	tree := r.tree()
	if tree == nil {
		return menu.List{}, false
	}
	l, ok := tree.Lists[id]
	return l, ok
}

func (r *Resolver) Submenu(id string) (menu.List, bool) {
	tree := r.tree()
	if tree == nil {
		return menu.List{}, false
	}
	l, ok := tree.Submenus[id]
	return l, ok
}

// Selection resolves a row or button id. List responses take precedence
// over submenu responses sharing the same id.
func (r *Resolver) Selection(id string) (menu.Reply, bool) {
	tree := r.tree()
	if tree == nil {
		return nil, false
	}
	if reply, ok := tree.ListResponses[id]; ok {
		return reply, true
	}
	reply, ok := tree.SubmenuResponses[id]
	return reply, ok
}

func (r *Resolver) tree() *menu.Tree {
	tree, err := r.source.Tree()
	if err != nil {
		r.log.WithError(err).Error("loading config")
		return nil
	}
	return tree
}
