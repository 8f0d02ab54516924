// Command issuetoken emite um JWT para operadores e serviços internos, ou gera o hash
// bcrypt de um segredo para a variável API_CLIENTS.
//
//	go run ./cmd/issuetoken -subject checkout -role service
//	go run ./cmd/issuetoken -hash-secret 'segredo-do-checkout'
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"stockflow/config"
	"stockflow/internal/domain"
	"stockflow/internal/pkg/token"
	"stockflow/internal/service/authservice"
)

func main() {
	subject := flag.String("subject", "", "sujeito do token (operador ou serviço)")
	role := flag.String("role", string(domain.RoleOperator), "papel: admin, operator ou service")
	hashSecret := flag.String("hash-secret", "", "gera o hash bcrypt do segredo e sai")
	flag.Parse()

	if *hashSecret != "" {
		hash, err := authservice.HashSecret(*hashSecret)
		if err != nil {
			log.Fatalf("falha ao gerar hash: %v", err)
		}
		fmt.Fprintln(os.Stdout, hash)
		return
	}

	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ Aviso: .env não encontrado. Usando apenas o ambiente do sistema: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("configuração inválida: %v", err)
	}
	if !domain.Role(*role).Valid() {
		log.Fatalf("papel desconhecido: %q", *role)
	}

	signed, err := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry).GenerateToken(*subject, *role)
	if err != nil {
		log.Fatalf("falha ao emitir token: %v", err)
	}
	fmt.Fprintln(os.Stdout, signed)
}
