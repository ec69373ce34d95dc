// Package artifact 登记应用产生的各类下载产物（文章、图片、图片组、分类页等），
// 并为缓存引擎提供参与容量统计与淘汰的后缀集合。
//
// 新增产物类型需要：
//   1. 在 kinds.go 中通过 MustRegister 注册 Kind，后缀必须满足 cache.ValidateTag；
//   2. 决定 Evictable：只有可淘汰的类型会被 Size/Purge 统计与删除；
//   3. 使用 KeyFor/KeyForBytes 生成缓存 key，保证文件名安全。
package artifact
