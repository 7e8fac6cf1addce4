// Package category содержит статическое дерево категорий и алгоритмы поиска по нему.
package category

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Node узел дерева категорий. Узел без подкатегорий является листом.
type Node struct {
	Name     string
	Children []Node
}

// Leaf создает лист
func Leaf(name string) Node {
	return Node{Name: name}
}

// Group создает категорию с подкатегориями
func Group(name string, children ...Node) Node {
	return Node{Name: name, Children: children}
}

func (n Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// UnmarshalYAML принимает либо строку (лист), либо словарь из одного ключа
// с перечнем подкатегорий
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		n.Name = value.Value
		n.Children = nil
		return nil
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("line %d: category group must have exactly one name", value.Line)
		}
		n.Name = value.Content[0].Value
		return value.Content[1].Decode(&n.Children)
	default:
		return fmt.Errorf("line %d: unexpected category node", value.Line)
	}
}

// Taxonomy статическое дерево категорий, общее для всех пользователей
type Taxonomy struct {
	Roots []Node
}

func New(roots ...Node) *Taxonomy {
	return &Taxonomy{Roots: roots}
}

// Default возвращает дерево категорий по умолчанию
func Default() *Taxonomy {
	return New(
		Group("expense",
			Group("food", Leaf("meal"), Leaf("snack"), Leaf("drink")),
			Group("transportation", Leaf("bus"), Leaf("railway")),
		),
		Group("income", Leaf("salary"), Leaf("bonus")),
	)
}

// Load читает дерево категорий из YAML-файла
func Load(path string) (*Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	return Parse(data)
}

// Parse разбирает дерево категорий из YAML
func Parse(data []byte) (*Taxonomy, error) {
	var roots []Node
	if err := yaml.Unmarshal(data, &roots); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(roots) == 0 {
		return nil, errors.New("taxonomy is empty")
	}

	// Имена должны быть уникальны во всем дереве, иначе поиск неоднозначен
	seen := make(map[string]bool)
	var check func(nodes []Node) error
	check = func(nodes []Node) error {
		for _, n := range nodes {
			if strings.TrimSpace(n.Name) == "" {
				return errors.New("taxonomy contains an empty category name")
			}
			if seen[n.Name] {
				return fmt.Errorf("duplicate category %q", n.Name)
			}
			seen[n.Name] = true
			if err := check(n.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := check(roots); err != nil {
		return nil, err
	}

	return New(roots...), nil
}

// IsValid сообщает, является ли name листом дерева
func (t *Taxonomy) IsValid(name string) bool {
	return isValid(t.Roots, name)
}

func isValid(nodes []Node, name string) bool {
	for _, n := range nodes {
		if n.IsLeaf() {
			if n.Name == name {
				return true
			}
			continue
		}
		if isValid(n.Children, name) {
			return true
		}
	}
	return false
}

// SubtreeOf находит категорию вместе с ее подкатегориями. Поиск не
// останавливается на первом совпадении и просматривает все дерево.
func (t *Taxonomy) SubtreeOf(name string) []Node {
	return subtreeOf(t.Roots, name)
}

func subtreeOf(nodes []Node, name string) []Node {
	var found []Node
	for _, n := range nodes {
		if n.Name == name {
			found = append(found, n)
			continue
		}
		found = append(found, subtreeOf(n.Children, name)...)
	}
	return found
}

// Flatten собирает имена всех листьев слева направо
func Flatten(nodes ...Node) []string {
	var names []string
	for _, n := range nodes {
		if n.IsLeaf() {
			names = append(names, n.Name)
			continue
		}
		names = append(names, Flatten(n.Children...)...)
	}
	return names
}

// Render возвращает дерево построчно, с отступом в два пробела на уровень
func (t *Taxonomy) Render() []string {
	var lines []string
	var walk func(nodes []Node, depth int)
	walk = func(nodes []Node, depth int) {
		for _, n := range nodes {
			lines = append(lines, strings.Repeat("  ", depth)+"- "+n.Name)
			walk(n.Children, depth+1)
		}
	}
	walk(t.Roots, 0)
	return lines
}
