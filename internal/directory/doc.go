// Package directory はidentity(Nostr公開鍵)とFCMデバイストークンの対応を管理する。
//
// identityごとのトークン集合と端末ごとのメタデータをSQLiteに保存する。
// 1つのトークンは常に高々1つのidentityに属し、別のidentityで再登録された場合は
// 以前の所有者の集合から同じトランザクション内で取り除かれる。
// トークンが1つも無くなったidentityは削除される。
//
// 時刻はすべてUTCのUnixミリ秒で保存する。
package directory
