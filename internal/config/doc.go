// Package config は環境変数からpushrelayの各バイナリの設定を読み込む。
//
// 設定はcaarlos0/envの構造体タグで宣言し、envDefaultで既定値を与える。
// Relayはcmd/pushrelay、Sweeperはcmd/sweeperが使用し、
// FirebaseとStorageは両方のバイナリで共有する。
package config
