package desensitize

const masked = "******"

var (
	// PrivateKeyRule 私钥字段 (private_key、privateKey、priv_key)
	PrivateKeyRule = MustNewFieldRule("private_key", `.+`, masked, "private_key", "privateKey", "priv_key")

	// ScalarRule 64 位十六进制标量 (d=3945...c5b8 -> d=******)
	ScalarRule = MustNewContentRule("scalar", `\b([dk])=[0-9a-fA-F]{64}\b`, "$1="+masked)

	// CredentialRule 口令类字段
	CredentialRule = MustNewFieldRule("credential", `.+`, masked, "password", "token", "secret", "authorization")
)

// KeyRules 返回密钥材料相关的规则
func KeyRules() []Rule {
	return []Rule{PrivateKeyRule, ScalarRule}
}

// BuiltinRules 返回所有内置规则
func BuiltinRules() []Rule {
	return append(KeyRules(), CredentialRule)
}
