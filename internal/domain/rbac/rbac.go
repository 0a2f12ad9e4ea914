// Пакет rbac: определение роли пользователя Content Module по данным IdP.
// Роль вычисляется из групп Keycloak, при их отсутствии: из realm_access.roles.
// Загрузка контента доступна только роли power.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleUser  = "user"
	RolePower = "power"
)

// roleWeight: вес роли для сравнения.
var roleWeight = map[string]int{
	RoleUser:  1,
	RolePower: 2,
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Если набор пуст: возвращает пустую строку.
func HighestRole(roles []string) string {
	if len(roles) == 0 {
		return ""
	}
	highest := roles[0]
	for _, r := range roles[1:] {
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль пользователя на основе его групп IdP.
// Возвращает максимальную роль из всех совпадений или пустую строку.
func MapGroupsToRole(groups []string, powerGroups, userGroups []string) string {
	powerSet := toSet(powerGroups)
	userSet := toSet(userGroups)

	var roles []string
	for _, g := range groups {
		if powerSet[g] {
			roles = append(roles, RolePower)
		}
		if userSet[g] {
			roles = append(roles, RoleUser)
		}
	}

	return HighestRole(roles)
}

// RoleFromClaims вычисляет роль: сначала по группам, затем по realm-ролям,
// совпадающим с известными именами ролей.
func RoleFromClaims(groups, realmRoles []string, powerGroups, userGroups []string) string {
	if role := MapGroupsToRole(groups, powerGroups, userGroups); role != "" {
		return role
	}

	var mapped []string
	for _, r := range realmRoles {
		if IsValidRole(r) {
			mapped = append(mapped, r)
		}
	}
	return HighestRole(mapped)
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// IsPower сообщает, даёт ли роль право загрузки контента.
func IsPower(role string) bool {
	return role == RolePower
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
