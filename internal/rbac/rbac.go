// Package rbac реализует проверку прав доступа операторов админ-панели.
package rbac

import (
	"sort"

	"github.com/mmeshcher/escrowadmin-system/internal/model"
)

// Permission описывает атомарное право оператора в формате "область:действие".
type Permission string

const (
	PermissionKycView           Permission = "kyc:view"
	PermissionKycUpdate         Permission = "kyc:update"
	PermissionKycApprove        Permission = "kyc:approve"
	PermissionUserView          Permission = "user:view"
	PermissionUserUpdate        Permission = "user:update"
	PermissionUserBlock         Permission = "user:block"
	PermissionUserDelete        Permission = "user:delete"
	PermissionTransactionView   Permission = "transaction:view"
	PermissionTransactionAction Permission = "transaction:action"
)

// rolePermissions — статическая таблица выдачи прав по ролям.
// Роли support и viewer намеренно получают одинаковый набор только для чтения.
var rolePermissions = map[model.Role]map[Permission]struct{}{
	model.RoleSuperadmin: permissionSet(
		PermissionKycView, PermissionKycUpdate, PermissionKycApprove,
		PermissionUserView, PermissionUserUpdate, PermissionUserBlock, PermissionUserDelete,
		PermissionTransactionView, PermissionTransactionAction,
	),
	model.RoleAdmin: permissionSet(
		PermissionKycView, PermissionKycUpdate, PermissionKycApprove,
		PermissionUserView, PermissionUserUpdate, PermissionUserBlock,
		PermissionTransactionView, PermissionTransactionAction,
	),
	model.RoleSupport: permissionSet(
		PermissionKycView, PermissionUserView, PermissionTransactionView,
	),
	model.RoleViewer: permissionSet(
		PermissionKycView, PermissionUserView, PermissionTransactionView,
	),
}

// routePermissions — статическая таблица требований к экранам панели.
// Для входа достаточно любого из перечисленных прав; маршруты без записи
// доступны любому аутентифицированному оператору.
var routePermissions = map[string][]Permission{
	"/kyc/pending":           {PermissionKycView},
	"/users/search":          {PermissionUserView},
	"/users/blocked":         {PermissionUserView},
	"/transactions/search":   {PermissionTransactionView},
	"/transactions/disputed": {PermissionTransactionView},
}

func permissionSet(perms ...Permission) map[Permission]struct{} {
	set := make(map[Permission]struct{}, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

// HasPermission проверяет, что роль обладает указанным правом.
// Пустая или неизвестная роль всегда даёт отказ.
func HasPermission(role model.Role, permission Permission) bool {
	if role == "" {
		return false
	}
	set, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = set[permission]
	return ok
}

// CanAccessRoute проверяет, может ли роль открыть экран с указанным путём.
// Пустая роль даёт отказ. Маршрут без требований доступен любой известной роли.
func CanAccessRoute(role model.Role, routePath string) bool {
	if role == "" {
		return false
	}

	required, ok := routePermissions[routePath]
	if !ok {
		return true
	}

	for _, p := range required {
		if HasPermission(role, p) {
			return true
		}
	}
	return false
}

// Permissions возвращает отсортированный список прав роли.
func Permissions(role model.Role) []Permission {
	set, ok := rolePermissions[role]
	if !ok {
		return nil
	}

	perms := make([]Permission, 0, len(set))
	for p := range set {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// AccessibleRoutes возвращает отсортированный список экранов с требованиями,
// доступных роли.
func AccessibleRoutes(role model.Role) []string {
	if role == "" {
		return nil
	}

	routes := make([]string, 0, len(routePermissions))
	for path := range routePermissions {
		if CanAccessRoute(role, path) {
			routes = append(routes, path)
		}
	}
	sort.Strings(routes)
	return routes
}
