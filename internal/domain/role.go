package domain

// Role é o papel de quem chama a API, vindo do token.
type Role string

const (
	RoleAdmin    Role = "admin"    // registro de armazéns e configuração de itens
	RoleOperator Role = "operator" // ajustes, transferências e contagens
	RoleService  Role = "service"  // checkout, fulfillment e reposição
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator || r == RoleService
}
