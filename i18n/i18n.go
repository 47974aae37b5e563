// Package i18n holds the pt-BR message catalog and the money and date
// formats used in rendered quotes.
package i18n

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Lang is the only supported locale.
const Lang = "pt-BR"

var (
	tag     = language.BrazilianPortuguese
	printer = message.NewPrinter(tag)
)

var catalog = map[string]string{
	// validation and service errors
	"required":                    "Obrigatório",
	"missing_selection":           "Selecione emissor e cliente.",
	"no_valid_items":              "Adicione ao menos um item com descrição.",
	"invalid_amount":              "Quantidade e valor unitário devem ser números não negativos.",
	"duplicate_number_for_issuer": "Já existe um orçamento com esse número para o mesmo emissor. Escolha outro número ou altere o emissor.",
	"quote_not_found":             "Orçamento não encontrado.",
	"party_not_found":             "Emissor ou cliente não encontrado.",
	"name_required":               "Informe o nome.",
	"persistence_failure":         "Não foi possível salvar os dados. Tente novamente.",
	"internal_error":              "Erro interno.",
	"invalid_json":                "JSON inválido.",
	"unauthorized":                "Faça login para continuar.",

	// auth results
	"signin_ok":          "Login realizado com sucesso!",
	"signin_invalid":     "Email ou senha incorretos",
	"signin_unconfirmed": "Confirme seu email antes de fazer login",
	"signup_ok":          "Conta criada! Você já pode fazer login.",
	"signup_exists":      "Este email já está cadastrado.",
	"signup_missing":     "Email e senha são obrigatórios.",
	"signup_invalid":     "Informe um email válido e uma senha com ao menos 6 caracteres.",
	"signout_ok":         "Você saiu com sucesso!",
	"reset_sent":         "Se o email estiver cadastrado, enviaremos instruções de recuperação.",
	"reset_done":         "Senha alterada. Você já pode fazer login.",
	"reset_invalid":      "Link de recuperação inválido ou expirado.",
	"auth_unavailable":   "Serviço de autenticação indisponível.",

	// flashes
	"quote_saved":   "Orçamento salvo.",
	"quote_removed": "Orçamento excluído.",
	"party_saved":   "Cadastro salvo.",
	"party_removed": "Cadastro excluído.",

	// labels
	"quote":        "Orçamento",
	"quotes":       "Orçamentos",
	"issuer":       "Emissor",
	"issuers":      "Emissores",
	"client":       "Cliente",
	"clients":      "Clientes",
	"recipient":    "Destinatário",
	"description":  "Descrição",
	"qty":          "Qtd",
	"unit":         "Unit.",
	"total":        "Total",
	"subtotal":     "Subtotal",
	"notes":        "Observações",
	"phone":        "Tel",
	"tax_id":       "CNPJ/CPF",
	"generated_at": "Gerado em",
	"number":       "Número",
	"created_at":   "Criado em",
}

// T returns the message for code, or code itself when it is unknown.
func T(code string) string {
	if msg, ok := catalog[code]; ok {
		return msg
	}
	return code
}

// Number formats v with two decimals using pt-BR separators (1.234,50).
func Number(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

// Money formats v as Brazilian reais.
func Money(v float64) string {
	return "R$ " + Number(v)
}

// Date formats t as dd/mm/yyyy.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("02/01/2006")
}
