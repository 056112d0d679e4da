package auth

import (
	"fmt"
	"sort"
	"strings"
)

// Role はアクセス制御に使うタグ。階層は持たない。
type Role string

const (
	// RoleCustomer は顧客向けAPI（/cust-api）を利用できるロール。
	RoleCustomer Role = "customer"
	// RoleAdmin は管理者向けAPI（/adm-api）を利用できるロール。
	RoleAdmin Role = "admin"
)

// knownRoles は定義済みロールの一覧。
var knownRoles = map[Role]struct{}{
	RoleCustomer: {},
	RoleAdmin:    {},
}

// ParseRole は文字列をRoleに変換する。未定義のロールはエラーになる。
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownRoles[r]; !ok {
		return "", fmt.Errorf("未定義のロールです: %q", s)
	}
	return r, nil
}

// RoleSet は重複を持たないロールの集合。ゼロ値は空集合として使える。
type RoleSet struct {
	m map[Role]struct{}
}

// NewRoleSet は指定したロールから集合を生成する。重複は1つにまとめられる。
func NewRoleSet(roles ...Role) RoleSet {
	m := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		m[r] = struct{}{}
	}
	return RoleSet{m: m}
}

// ParseRoleSet は文字列のスライスから集合を生成する。
// 未定義のロールは無視する。
func ParseRoleSet(values []string) RoleSet {
	roles := make([]Role, 0, len(values))
	for _, v := range values {
		r, err := ParseRole(v)
		if err != nil {
			continue
		}
		roles = append(roles, r)
	}
	return NewRoleSet(roles...)
}

// Has は集合にロールが含まれるかを返す。
func (s RoleSet) Has(r Role) bool {
	_, ok := s.m[r]
	return ok
}

// Intersects は2つの集合の共通部分が空でないかを返す。
func (s RoleSet) Intersects(other RoleSet) bool {
	small, large := s, other
	if len(small.m) > len(large.m) {
		small, large = large, small
	}
	for r := range small.m {
		if large.Has(r) {
			return true
		}
	}
	return false
}

// Len は集合の要素数を返す。
func (s RoleSet) Len() int {
	return len(s.m)
}

// Slice は集合を辞書順に並べたスライスで返す。
func (s RoleSet) Slice() []Role {
	out := make([]Role, 0, len(s.m))
	for r := range s.m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Strings は集合を辞書順の文字列スライスで返す。
func (s RoleSet) Strings() []string {
	roles := s.Slice()
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// String はカンマ区切りの表現を返す。
func (s RoleSet) String() string {
	return strings.Join(s.Strings(), ",")
}
